package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/vishal-grover-dev/iq-sub000/internal/adapter"
	"github.com/vishal-grover-dev/iq-sub000/internal/adapter/embedding"
	"github.com/vishal-grover-dev/iq-sub000/internal/cache"
	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/database"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
	"github.com/vishal-grover-dev/iq-sub000/internal/logger"
	"github.com/vishal-grover-dev/iq-sub000/internal/repository"

	"go.uber.org/zap"
)

// seedQuestion is the JSON shape of one bank item in the seed file.
type seedQuestion struct {
	Topic        string   `json:"topic"`
	Subtopic     string   `json:"subtopic"`
	Difficulty   string   `json:"difficulty"`
	BloomLevel   string   `json:"bloom_level"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	CodeSnippet  string   `json:"code_snippet"`
}

const embedBatchSize = 50

func main() {
	seedFile := flag.String("file", "database/seed/questions.json", "path to the seed questions JSON file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Logger)
	l := logger.Get()
	defer l.Sync()

	data, err := os.ReadFile(*seedFile)
	if err != nil {
		l.Fatal("Failed to read seed file", zap.Error(err))
	}
	var seeds []seedQuestion
	if err := json.Unmarshal(data, &seeds); err != nil {
		l.Fatal("Failed to parse seed file", zap.Error(err))
	}

	db, err := database.NewSQLXPostgresDB(cfg.GetDSN())
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)

	embeddingService, err := embedding.NewOpenAIEmbeddingService(cfg.OpenAI, cacheAdapter, cfg.CacheTTLs.Embedding)
	if err != nil {
		l.Fatal("Failed to create embedding service", zap.Error(err))
	}

	questionRepo := repository.NewQuestionDatabaseAdapter(db)
	ctx := context.Background()

	inserted, skipped := 0, 0
	for start := 0; start < len(seeds); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(seeds) {
			end = len(seeds)
		}
		batch := seeds[start:end]

		texts := make([]string, len(batch))
		for i, s := range batch {
			texts[i] = s.Question
		}
		vectors, err := embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			l.Fatal("Failed to embed seed batch", zap.Error(err))
		}

		for i, s := range batch {
			difficulty, ok := domain.ParseDifficulty(s.Difficulty)
			if !ok {
				l.Warn("Skipping seed with invalid difficulty", zap.String("question", s.Question))
				skipped++
				continue
			}
			bloom, ok := domain.ParseBloomLevel(s.BloomLevel)
			if !ok {
				l.Warn("Skipping seed with invalid bloom level", zap.String("question", s.Question))
				skipped++
				continue
			}

			question := &domain.Question{
				Topic:        s.Topic,
				Subtopic:     s.Subtopic,
				Difficulty:   difficulty,
				BloomLevel:   bloom,
				Question:     s.Question,
				Options:      s.Options,
				CorrectIndex: s.CorrectIndex,
				CodeSnippet:  s.CodeSnippet,
				Embedding:    vectors[i],
				ContentKey:   domain.ContentKey(s.Question),
				CreatedBy:    "seed",
			}
			if err := question.Validate(); err != nil {
				l.Warn("Skipping invalid seed question", zap.Error(err), zap.String("question", s.Question))
				skipped++
				continue
			}

			if err := questionRepo.InsertQuestion(ctx, question); err != nil {
				if errors.Is(err, domain.ErrContentConflict) {
					skipped++
					continue
				}
				l.Fatal("Failed to insert seed question", zap.Error(err))
			}
			inserted++
		}
	}

	l.Info("Seed complete", zap.Int("inserted", inserted), zap.Int("skipped", skipped))
}
