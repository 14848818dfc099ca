package kvstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	badgerstore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/badger"
	filestore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/file"
	inmemorystore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/inmemory"
	redisstore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/redis"
	sqlitestore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/sqlite"
	log "github.com/sirupsen/logrus"
)

const (
	InMemory = "inmemory"
	File     = "file"
	Badger   = "badger"
	Sqlite   = "sqlite"
	Redis    = "redis"
)

type Config struct {
	Type    string
	Datadir string
	// RedisURL and Namespace are only used by the redis store.
	RedisURL  string
	Namespace string
}

var storeTypes = map[string]func(Config) (ports.KVStore, error){
	InMemory: func(Config) (ports.KVStore, error) {
		return inmemorystore.NewStore(), nil
	},
	File: func(c Config) (ports.KVStore, error) {
		return filestore.NewStore(c.Datadir)
	},
	Badger: func(c Config) (ports.KVStore, error) {
		return badgerstore.NewStore(c.Datadir, log.StandardLogger())
	},
	Sqlite: func(c Config) (ports.KVStore, error) {
		return sqlitestore.NewStore(c.Datadir)
	},
	Redis: func(c Config) (ports.KVStore, error) {
		return redisstore.NewStore(c.RedisURL, c.Namespace)
	},
}

func NewStore(config Config) (ports.KVStore, error) {
	factory, ok := storeTypes[config.Type]
	if !ok {
		return nil, fmt.Errorf("unknown kv store type %s", config.Type)
	}
	store, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %s", config.Type, err)
	}
	return store, nil
}

func Supports(storeType string) bool {
	_, ok := storeTypes[storeType]
	return ok
}

func SupportedTypes() string {
	types := make([]string, 0, len(storeTypes))
	for t := range storeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
