package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type MetadataCacheConfig struct {
	TTL          time.Duration
	FetchTimeout time.Duration
}

func DefaultMetadataCacheConfig() MetadataCacheConfig {
	return MetadataCacheConfig{
		TTL:          24 * time.Hour,
		FetchTimeout: 10 * time.Second,
	}
}

// MetadataCache resolves NFT metadata documents through a memory cache, the
// persistent store and finally the network.
type MetadataCache struct {
	fetcher ports.MetadataFetcher
	repo    domain.MetadataRepository
	clock   clock.Clock
	cfg     MetadataCacheConfig

	lock   *sync.RWMutex
	memory map[string]domain.MetadataEntry
	group  singleflight.Group
}

func NewMetadataCache(
	fetcher ports.MetadataFetcher, repo domain.MetadataRepository,
	clk clock.Clock, cfg MetadataCacheConfig,
) *MetadataCache {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &MetadataCache{
		fetcher: fetcher,
		repo:    repo,
		clock:   clk,
		cfg:     cfg,
		lock:    &sync.RWMutex{},
		memory:  make(map[string]domain.MetadataEntry),
	}
}

// Resolve returns the metadata document at uri, cached under key. Concurrent
// calls for the same key share one lookup. It returns None if the document
// cannot be obtained. A stale cached copy is served when a refresh fails.
func (c *MetadataCache) Resolve(
	ctx context.Context, uri, key string,
) fn.Option[json.RawMessage] {
	if entry, ok := c.fromMemory(key); ok && entry.IsFresh(c.clock.Now(), c.cfg.TTL) {
		return fn.Some(entry.Payload)
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.load(uri, key), nil
	})
	select {
	case res := <-ch:
		return res.Val.(fn.Option[json.RawMessage])
	case <-ctx.Done():
		return fn.None[json.RawMessage]()
	}
}

// ResolveCoin resolves the metadata of an NFT coin trying each of its
// metadata URIs in order.
func (c *MetadataCache) ResolveCoin(
	ctx context.Context, coin domain.HydratedCoin,
) fn.Option[json.RawMessage] {
	nft, ok := coin.Driver.(domain.NFTDriver)
	if !ok {
		return fn.None[json.RawMessage]()
	}
	for _, uri := range nft.MetadataURIs {
		key := domain.MetadataKey(coin.ParentCoinInfo, coin.PuzzleHash, uri)
		if payload := c.Resolve(ctx, uri, key); payload.IsSome() {
			return payload
		}
	}
	return fn.None[json.RawMessage]()
}

func (c *MetadataCache) load(uri, key string) fn.Option[json.RawMessage] {
	now := c.clock.Now()

	stale, ok := c.fromMemory(key)
	if ok && stale.IsFresh(now, c.cfg.TTL) {
		return fn.Some(stale.Payload)
	}
	if !ok {
		if entry := c.fromStore(key); entry != nil {
			if entry.IsFresh(now, c.cfg.TTL) {
				c.toMemory(*entry)
				return fn.Some(entry.Payload)
			}
			stale, ok = *entry, true
		}
	}

	payload, err := c.fetch(uri)
	if err != nil {
		if ok {
			log.WithError(err).Debugf("serving stale metadata for %s", uri)
			return fn.Some(stale.Payload)
		}
		log.WithError(err).Debugf("failed to fetch metadata %s", uri)
		return fn.None[json.RawMessage]()
	}

	entry := domain.MetadataEntry{Key: key, Payload: payload, FetchedAt: c.clock.Now()}
	c.toMemory(entry)
	if err := c.repo.AddOrUpdateEntry(context.Background(), entry); err != nil {
		log.WithError(err).Warnf("failed to persist metadata %s", key)
	}
	return fn.Some(entry.Payload)
}

func (c *MetadataCache) fetch(uri string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	defer cancel()

	buf, err := c.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if !json.Valid(buf) {
		return nil, errors.New("metadata is not valid json")
	}
	return json.RawMessage(buf), nil
}

func (c *MetadataCache) fromMemory(key string) (domain.MetadataEntry, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	entry, ok := c.memory[key]
	return entry, ok
}

func (c *MetadataCache) toMemory(entry domain.MetadataEntry) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.memory[entry.Key] = entry
}

// fromStore returns the persisted entry for key, or nil. Store failures are
// treated as misses and corrupt entries are removed.
func (c *MetadataCache) fromStore(key string) *domain.MetadataEntry {
	ctx := context.Background()
	entry, err := c.repo.GetEntry(ctx, key)
	if err == nil {
		return entry
	}
	if errors.Is(err, domain.ErrCorruptEntry) {
		log.WithError(err).Warnf("discarding corrupt metadata entry %s", key)
		if err := c.repo.DeleteEntry(ctx, key); err != nil {
			log.WithError(err).Warnf("failed to delete metadata entry %s", key)
		}
		return nil
	}
	log.WithError(err).Warnf("failed to read metadata entry %s", key)
	return nil
}
