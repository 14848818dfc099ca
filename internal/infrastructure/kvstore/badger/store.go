package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const storeDir = "kv"

type entry struct {
	Name  string
	Value string
}

type store struct {
	db     *badgerhold.Store
	stopGC chan struct{}
}

// NewStore opens a badger backed store under baseDir. An empty baseDir
// opens an in-memory store.
func NewStore(baseDir string, logger badger.Logger) (ports.KVStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, storeDir)
	}
	s := &store{stopGC: make(chan struct{})}
	db, err := s.createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %s", err)
	}
	s.db = db
	return s, nil
}

func (s *store) Get(_ context.Context, key string) (string, error) {
	var e entry
	if err := s.db.Get(key, &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", ports.ErrKeyNotFound
		}
		return "", err
	}
	return e.Value, nil
}

func (s *store) Set(_ context.Context, key, value string) error {
	return s.db.Upsert(key, entry{key, value})
}

func (s *store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete(key, entry{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}
	return nil
}

func (s *store) Keys(_ context.Context, prefix string) ([]string, error) {
	var entries []entry
	query := badgerhold.Where("Name").HasPrefix(prefix)
	if err := s.db.Find(&entries, query); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *store) Close() {
	close(s.stopGC)
	if err := s.db.Close(); err != nil {
		log.WithError(err).Warn("failed to close badger store")
	}
	log.Debug("closed badger store")
}

func (s *store) createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		go func() {
			ticker := time.NewTicker(30 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
						log.WithError(err).Warn("badger value log gc failed")
					}
				case <-s.stopGC:
					return
				}
			}
		}()
	}

	return db, nil
}
