package inmemorystore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
)

type store struct {
	lock *sync.RWMutex
	data map[string]string
}

func NewStore() ports.KVStore {
	return &store{&sync.RWMutex{}, make(map[string]string)}
}

func (s *store) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return value, nil
}

func (s *store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[key] = value
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, key)
	return nil
}

func (s *store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *store) Close() {}
