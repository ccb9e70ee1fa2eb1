package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	OpenAI    OpenAIConfig
	Selection SelectionConfig
	CacheTTLs CacheTTLConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
	Env   string
}

type AuthConfig struct {
	JWTSecret string
}

type OpenAIConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// SelectionConfig holds the tuning knobs of the question selection pipeline.
type SelectionConfig struct {
	TotalQuestions      int     // fixed attempt length
	BankPageSize        int     // max candidates per bank query
	TopKSelection       int     // weighted random pool size
	HighSimilarity      float64 // cosine threshold for hard penalty / rejection
	MediumSimilarity    float64 // cosine threshold for soft penalty
	TextJaccard         float64 // word-level Jaccard rejection threshold
	TopicCoverageCeil   float64 // max share of slots a single topic may take
	RecentAttemptWindow int     // completed attempts checked for freshness
	MaxGenerateAttempts int     // generation fallback iterations
	MaxInsertRetries    int     // transient-error retries per assignment
	InsertBackoffBase   time.Duration
	NegativeExampleCap  int
	RandomSeed          int64 // 0 means seed from time
}

type CacheTTLConfig struct {
	Embedding      time.Duration
	AttemptSummary time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env vars carry a full config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         viper.GetString("openai.api_key"),
			ChatModel:      viper.GetString("openai.chat_model"),
			EmbeddingModel: viper.GetString("openai.embedding_model"),
		},
		Selection: SelectionConfig{
			TotalQuestions:      viper.GetInt("selection.total_questions"),
			BankPageSize:        viper.GetInt("selection.bank_page_size"),
			TopKSelection:       viper.GetInt("selection.top_k"),
			HighSimilarity:      viper.GetFloat64("selection.high_similarity"),
			MediumSimilarity:    viper.GetFloat64("selection.medium_similarity"),
			TextJaccard:         viper.GetFloat64("selection.text_jaccard"),
			TopicCoverageCeil:   viper.GetFloat64("selection.topic_coverage_ceiling"),
			RecentAttemptWindow: viper.GetInt("selection.recent_attempt_window"),
			MaxGenerateAttempts: viper.GetInt("selection.max_generate_attempts"),
			MaxInsertRetries:    viper.GetInt("selection.max_insert_retries"),
			InsertBackoffBase:   viper.GetDuration("selection.insert_backoff_base"),
			NegativeExampleCap:  viper.GetInt("selection.negative_example_cap"),
			RandomSeed:          viper.GetInt64("selection.random_seed"),
		},
		CacheTTLs: CacheTTLConfig{
			Embedding:      viper.GetDuration("cache_ttls.embedding"),
			AttemptSummary: viper.GetDuration("cache_ttls.attempt_summary"),
		},
	}

	overrideFromEnv(cfg)
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 15)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("openai.chat_model", "gpt-4o-mini")
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")

	viper.SetDefault("selection.total_questions", 60)
	viper.SetDefault("selection.bank_page_size", 20)
	viper.SetDefault("selection.top_k", 8)
	viper.SetDefault("selection.high_similarity", 0.92)
	viper.SetDefault("selection.medium_similarity", 0.85)
	viper.SetDefault("selection.text_jaccard", 0.7)
	viper.SetDefault("selection.topic_coverage_ceiling", 0.4)
	viper.SetDefault("selection.recent_attempt_window", 2)
	viper.SetDefault("selection.max_generate_attempts", 3)
	viper.SetDefault("selection.max_insert_retries", 3)
	viper.SetDefault("selection.insert_backoff_base", 50*time.Millisecond)
	viper.SetDefault("selection.negative_example_cap", 25)
	viper.SetDefault("selection.random_seed", 0)

	viper.SetDefault("cache_ttls.embedding", 168*time.Hour)
	viper.SetDefault("cache_ttls.attempt_summary", 30*time.Second)
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DB.DBName = dbname
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		cfg.Redis.Address = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
}

// GetDSN returns the Postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}
