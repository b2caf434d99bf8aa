package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// RedisOptions configure the Redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps metadata in one Redis hash, one field per domain
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Key == "" {
		opts.Key = "sentinel:metadata"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, key: opts.Key}, nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Load reads every field of the hash
func (s *RedisStore) Load(ctx context.Context) (map[string]monitor.EvidenceRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return decodeFields(fields)
}

// Put sets one domain's field
func (s *RedisStore) Put(ctx context.Context, domain string, rec monitor.EvidenceRecord) error {
	value, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key, domain, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Save replaces the hash in one transaction
func (s *RedisStore) Save(ctx context.Context, records map[string]monitor.EvidenceRecord) error {
	values := make(map[string]any, len(records))
	for domain, rec := range records {
		value, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		values[domain] = value
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func encodeRecord(rec monitor.EvidenceRecord) (string, error) {
	data, err := json.Marshal(FromEvidence(rec))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return string(data), nil
}

func decodeFields(fields map[string]string) (map[string]monitor.EvidenceRecord, error) {
	out := make(map[string]monitor.EvidenceRecord, len(fields))
	for domain, value := range fields {
		var rec Record
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("%w: bad record for %s: %v", ErrRead, domain, err)
		}
		out[domain] = rec.Evidence()
	}
	return out, nil
}
