package db

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	offersPrefix   = "offers:"
	metadataPrefix = "metadata:"
)

type repoManager struct {
	store ports.KVStore

	lock         *sync.Mutex
	offerRepos   map[domain.Hash]domain.OfferRepository
	metadataRepo domain.MetadataRepository
}

// NewService returns the repositories of the wallet, all backed by store.
func NewService(store ports.KVStore) ports.RepoManager {
	return &repoManager{
		store:        store,
		lock:         &sync.Mutex{},
		offerRepos:   make(map[domain.Hash]domain.OfferRepository),
		metadataRepo: newMetadataRepository(store),
	}
}

func (m *repoManager) Offers(account domain.Hash) domain.OfferRepository {
	m.lock.Lock()
	defer m.lock.Unlock()

	repo, ok := m.offerRepos[account]
	if !ok {
		repo = newOfferRepository(m.store, accountNamespace(account))
		m.offerRepos[account] = repo
	}
	return repo
}

func (m *repoManager) Metadata() domain.MetadataRepository {
	return m.metadataRepo
}

func (m *repoManager) Close() {
	m.store.Close()
	log.Debug("closed repositories")
}

// accountNamespace derives a stable, fixed-size storage key for an account
// from its puzzle hash.
func accountNamespace(account domain.Hash) string {
	h := sha256.Sum256(account[:])
	return hex.EncodeToString(h[:])
}
