package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCacheAdapterGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cacheAdapter := NewRedisCacheAdapter(db)

	mock.ExpectGet("iq:embedding:openai:abc").SetVal("payload")

	val, err := cacheAdapter.Get(context.Background(), "iq:embedding:openai:abc")

	assert.NoError(t, err)
	assert.Equal(t, "payload", val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheAdapterGetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cacheAdapter := NewRedisCacheAdapter(db)

	mock.ExpectGet("missing").RedisNil()

	val, err := cacheAdapter.Get(context.Background(), "missing")

	assert.Empty(t, val)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCacheAdapterGetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cacheAdapter := NewRedisCacheAdapter(db)

	mock.ExpectGet("key").SetErr(errors.New("connection refused"))

	_, err := cacheAdapter.Get(context.Background(), "key")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCacheAdapterSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cacheAdapter := NewRedisCacheAdapter(db)

	mock.ExpectSet("key", "value", time.Hour).SetVal("OK")

	err := cacheAdapter.Set(context.Background(), "key", "value", time.Hour)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheAdapterDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cacheAdapter := NewRedisCacheAdapter(db)

	mock.ExpectDel("key").SetVal(1)

	err := cacheAdapter.Delete(context.Background(), "key")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
