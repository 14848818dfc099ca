package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// store keeps values in redis under a common namespace so that several
// wallets can share one database.
type store struct {
	rdb       *redis.Client
	namespace string
}

func NewStore(url, namespace string) (ports.KVStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %s", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %s", err)
	}
	return &store{rdb, namespace}, nil
}

func (s *store) key(k string) string {
	return s.namespace + k
}

func (s *store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *store) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *store) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapePattern(s.key(prefix)) + "*"
	keys := make([]string, 0)
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *store) Close() {
	if err := s.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}

var patternEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`,
)

func escapePattern(s string) string {
	return patternEscaper.Replace(s)
}
