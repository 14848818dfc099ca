package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const storeFilename = "wallet.json"

// store keeps every key in a single JSON document on disk. Writes go to a
// temporary file first and are then renamed over the previous version.
type store struct {
	lock     *sync.RWMutex
	filePath string
	data     map[string]string
}

func NewStore(baseDir string) (ports.KVStore, error) {
	if len(baseDir) <= 0 {
		return nil, fmt.Errorf("missing base directory")
	}

	datadir := cleanAndExpandPath(baseDir)
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}

	s := &store{
		lock:     &sync.RWMutex{},
		filePath: filepath.Join(datadir, storeFilename),
	}
	data, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %s", err)
	}
	s.data = data
	return s, nil
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

	prev, existed := s.data[key]
	s.data[key] = value
	if err := s.write(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return fmt.Errorf("failed to write to store: %s", err)
	}
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	prev, ok := s.data[key]
	if !ok {
		return nil
	}
	delete(s.data, key)
	if err := s.write(); err != nil {
		s.data[key] = prev
		return fmt.Errorf("failed to write to store: %s", err)
	}
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

func (s *store) open() (map[string]string, error) {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return make(map[string]string), nil
	}

	data := make(map[string]string)
	if err := json.Unmarshal(file, &data); err != nil {
		backup := s.filePath + ".corrupt"
		log.WithError(err).Warnf("store file is corrupt, moving it to %s", backup)
		if err := os.Rename(s.filePath, backup); err != nil {
			return nil, err
		}
		return make(map[string]string), nil
	}
	return data, nil
}

func (s *store) write() error {
	buf, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}
