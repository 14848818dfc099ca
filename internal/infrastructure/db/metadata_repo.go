package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
)

type metadataRepository struct {
	store ports.KVStore
}

func newMetadataRepository(store ports.KVStore) domain.MetadataRepository {
	return &metadataRepository{store}
}

// GetEntry returns nil if no entry is stored under key, and an error
// wrapping domain.ErrCorruptEntry if it can't be decoded.
func (r *metadataRepository) GetEntry(ctx context.Context, key string) (*domain.MetadataEntry, error) {
	value, err := r.store.Get(ctx, metadataPrefix+key)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entry domain.MetadataEntry
	if err := json.Unmarshal([]byte(value), &entry); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCorruptEntry, err)
	}
	if entry.Key != key || !json.Valid(entry.Payload) || entry.FetchedAt.IsZero() {
		return nil, fmt.Errorf("%w: invalid metadata entry %s", domain.ErrCorruptEntry, key)
	}
	return &entry, nil
}

func (r *metadataRepository) AddOrUpdateEntry(ctx context.Context, entry domain.MetadataEntry) error {
	buf, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, metadataPrefix+entry.Key, string(buf))
}

func (r *metadataRepository) DeleteEntry(ctx context.Context, key string) error {
	return r.store.Delete(ctx, metadataPrefix+key)
}
