package kvstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	testCases := []struct {
		name    string
		config  func(t *testing.T) kvstore.Config
		persist bool
	}{
		{
			name: kvstore.InMemory,
			config: func(*testing.T) kvstore.Config {
				return kvstore.Config{Type: kvstore.InMemory}
			},
		},
		{
			name: kvstore.File,
			config: func(t *testing.T) kvstore.Config {
				return kvstore.Config{Type: kvstore.File, Datadir: t.TempDir()}
			},
			persist: true,
		},
		{
			name: "badger in memory",
			config: func(*testing.T) kvstore.Config {
				return kvstore.Config{Type: kvstore.Badger}
			},
		},
		{
			name: kvstore.Badger,
			config: func(t *testing.T) kvstore.Config {
				return kvstore.Config{Type: kvstore.Badger, Datadir: t.TempDir()}
			},
			persist: true,
		},
		{
			name: kvstore.Sqlite,
			config: func(t *testing.T) kvstore.Config {
				return kvstore.Config{Type: kvstore.Sqlite, Datadir: t.TempDir()}
			},
			persist: true,
		},
		{
			name: kvstore.Redis,
			config: func(t *testing.T) kvstore.Config {
				url := os.Getenv("REDIS_URL")
				if url == "" {
					t.Skip("REDIS_URL not set")
				}
				return kvstore.Config{
					Type: kvstore.Redis, RedisURL: url, Namespace: t.Name() + ":",
				}
			},
			persist: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := tc.config(t)
			store, err := kvstore.NewStore(config)
			require.NoError(t, err)

			testStore(t, store)

			if tc.persist {
				ctx := context.Background()
				require.NoError(t, store.Set(ctx, "persisted", `{"ok":true}`))
				store.Close()

				store, err = kvstore.NewStore(config)
				require.NoError(t, err)
				value, err := store.Get(ctx, "persisted")
				require.NoError(t, err)
				require.Equal(t, `{"ok":true}`, value)
				require.NoError(t, store.Delete(ctx, "persisted"))
			}
			store.Close()
		})
	}
}

func testStore(t *testing.T, store ports.KVStore) {
	ctx := context.Background()

	value, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrKeyNotFound)
	require.Empty(t, value)

	require.NoError(t, store.Set(ctx, "offers:aa", `[]`))
	require.NoError(t, store.Set(ctx, "offers:bb", `[1]`))
	require.NoError(t, store.Set(ctx, "metadata:aa", `{}`))

	value, err = store.Get(ctx, "offers:bb")
	require.NoError(t, err)
	require.Equal(t, `[1]`, value)

	require.NoError(t, store.Set(ctx, "offers:bb", `[2]`))
	value, err = store.Get(ctx, "offers:bb")
	require.NoError(t, err)
	require.Equal(t, `[2]`, value)

	keys, err := store.Keys(ctx, "offers:")
	require.NoError(t, err)
	require.Equal(t, []string{"offers:aa", "offers:bb"}, keys)

	keys, err = store.Keys(ctx, "none:")
	require.NoError(t, err)
	require.Empty(t, keys)

	require.NoError(t, store.Delete(ctx, "offers:aa"))
	require.NoError(t, store.Delete(ctx, "offers:aa"))
	_, err = store.Get(ctx, "offers:aa")
	require.ErrorIs(t, err, ports.ErrKeyNotFound)

	require.NoError(t, store.Delete(ctx, "offers:bb"))
	require.NoError(t, store.Delete(ctx, "metadata:aa"))
}

func TestUnknownStore(t *testing.T) {
	_, err := kvstore.NewStore(kvstore.Config{Type: "leveldb"})
	require.Error(t, err)
	require.False(t, kvstore.Supports("leveldb"))
	require.True(t, kvstore.Supports(kvstore.Sqlite))
}
