package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/application"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/db"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore"
	restledger "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/ledger/rest"
	restmarketplace "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/marketplace/rest"
	httpmetadata "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/metadata/http"
	scheduler "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/scheduler/gocron"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/address"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

var supportedNetworks = supportedType{
	address.Mainnet.String(): {},
	address.Testnet.String(): {},
}

type Config struct {
	Datadir  string
	DbDir    string
	LogLevel int
	Network  string

	LedgerURL        string
	LedgerCredential string `json:"-"`
	MarketplaceURL   string
	IPFSGateway      string

	KVStoreType string
	RedisURL    string

	StalenessThreshold       time.Duration
	SyncRetries              int
	SyncBackoffBase          time.Duration
	SyncTimeout              time.Duration
	SyncInterval             time.Duration
	MetadataTimeout          time.Duration
	MetadataTTL              time.Duration
	MetadataRateLimit        float64
	OfferExpirySweepInterval time.Duration

	codec       *address.Codec
	store       ports.KVStore
	repo        ports.RepoManager
	ledger      ports.LedgerService
	marketplace ports.Marketplace
	fetcher     ports.MetadataFetcher
	scheduler   ports.SchedulerService
	svc         application.Service
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir                  = "DATADIR"
	LogLevel                 = "LOG_LEVEL"
	Network                  = "NETWORK"
	LedgerURL                = "LEDGER_URL"
	LedgerCredential         = "LEDGER_CREDENTIAL"
	MarketplaceURL           = "MARKETPLACE_URL"
	IPFSGateway              = "IPFS_GATEWAY"
	KVStoreType              = "KV_STORE_TYPE"
	RedisURL                 = "REDIS_URL"
	StalenessThreshold       = "STALENESS_THRESHOLD"
	SyncRetries              = "SYNC_RETRIES"
	SyncBackoffBase          = "SYNC_BACKOFF_BASE"
	SyncTimeout              = "SYNC_TIMEOUT"
	SyncInterval             = "SYNC_INTERVAL"
	MetadataTimeout          = "METADATA_TIMEOUT"
	MetadataTTL              = "METADATA_TTL"
	MetadataRateLimit        = "METADATA_RATE_LIMIT"
	OfferExpirySweepInterval = "OFFER_EXPIRY_SWEEP_INTERVAL"

	DefaultDatadir = btcutil.AppDataDir("xchwallet", false)

	defaultLogLevel                 = 4
	defaultNetwork                  = address.Mainnet.String()
	defaultMarketplaceURL           = "https://api.dexie.space"
	defaultIPFSGateway              = httpmetadata.DefaultGateway
	defaultKVStoreType              = kvstore.Badger
	defaultStalenessThreshold       = 30 * time.Second
	defaultSyncRetries              = 3
	defaultSyncBackoffBase          = 2 * time.Second
	defaultSyncTimeout              = 60 * time.Second
	defaultSyncInterval             = 30 * time.Second
	defaultMetadataTimeout          = 10 * time.Second
	defaultMetadataTTL              = 24 * time.Hour
	defaultMetadataRateLimit        = 5.0
	defaultOfferExpirySweepInterval = time.Minute
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("XCHWALLET")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, DefaultDatadir)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(MarketplaceURL, defaultMarketplaceURL)
	viper.SetDefault(IPFSGateway, defaultIPFSGateway)
	viper.SetDefault(KVStoreType, defaultKVStoreType)
	viper.SetDefault(StalenessThreshold, defaultStalenessThreshold)
	viper.SetDefault(SyncRetries, defaultSyncRetries)
	viper.SetDefault(SyncBackoffBase, defaultSyncBackoffBase)
	viper.SetDefault(SyncTimeout, defaultSyncTimeout)
	viper.SetDefault(SyncInterval, defaultSyncInterval)
	viper.SetDefault(MetadataTimeout, defaultMetadataTimeout)
	viper.SetDefault(MetadataTTL, defaultMetadataTTL)
	viper.SetDefault(MetadataRateLimit, defaultMetadataRateLimit)
	viper.SetDefault(OfferExpirySweepInterval, defaultOfferExpirySweepInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	return &Config{
		Datadir:                  viper.GetString(Datadir),
		DbDir:                    filepath.Join(viper.GetString(Datadir), "db"),
		LogLevel:                 viper.GetInt(LogLevel),
		Network:                  strings.ToLower(viper.GetString(Network)),
		LedgerURL:                viper.GetString(LedgerURL),
		LedgerCredential:         viper.GetString(LedgerCredential),
		MarketplaceURL:           viper.GetString(MarketplaceURL),
		IPFSGateway:              viper.GetString(IPFSGateway),
		KVStoreType:              viper.GetString(KVStoreType),
		RedisURL:                 viper.GetString(RedisURL),
		StalenessThreshold:       viper.GetDuration(StalenessThreshold),
		SyncRetries:              viper.GetInt(SyncRetries),
		SyncBackoffBase:          viper.GetDuration(SyncBackoffBase),
		SyncTimeout:              viper.GetDuration(SyncTimeout),
		SyncInterval:             viper.GetDuration(SyncInterval),
		MetadataTimeout:          viper.GetDuration(MetadataTimeout),
		MetadataTTL:              viper.GetDuration(MetadataTTL),
		MetadataRateLimit:        viper.GetFloat64(MetadataRateLimit),
		OfferExpirySweepInterval: viper.GetDuration(OfferExpirySweepInterval),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedNetworks.supports(c.Network) {
		return fmt.Errorf("network not supported, please select one of: %s", supportedNetworks)
	}
	if !kvstore.Supports(c.KVStoreType) {
		return fmt.Errorf(
			"kv store type not supported, please select one of: %s", kvstore.SupportedTypes(),
		)
	}
	if c.KVStoreType == kvstore.Redis && c.RedisURL == "" {
		return fmt.Errorf("missing redis url")
	}
	if c.LedgerURL == "" {
		return fmt.Errorf("missing ledger service url")
	}
	if c.MarketplaceURL == "" {
		return fmt.Errorf("missing marketplace url")
	}
	if c.StalenessThreshold <= 0 {
		return fmt.Errorf("invalid staleness threshold, must be greater than 0")
	}
	if c.SyncRetries < 0 {
		return fmt.Errorf("invalid sync retries, must not be negative")
	}
	if c.SyncBackoffBase < 0 {
		return fmt.Errorf("invalid sync backoff base, must not be negative")
	}
	if c.SyncTimeout <= 0 || c.MetadataTimeout <= 0 {
		return fmt.Errorf("invalid timeout, must be greater than 0")
	}
	if c.SyncInterval <= 0 || c.OfferExpirySweepInterval <= 0 {
		return fmt.Errorf("invalid interval, must be greater than 0")
	}
	if c.MetadataTTL <= 0 {
		return fmt.Errorf("invalid metadata ttl, must be greater than 0")
	}
	if c.MetadataRateLimit < 0 {
		return fmt.Errorf("invalid metadata rate limit, must not be negative")
	}

	if err := c.addressCodec(); err != nil {
		return err
	}
	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.marketplaceService(); err != nil {
		return err
	}
	if err := c.metadataFetcher(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AddressCodec() *address.Codec {
	return c.codec
}

func (c *Config) addressCodec() error {
	network, err := address.ParseNetwork(c.Network)
	if err != nil {
		return err
	}
	c.codec = address.NewCodec(network)
	return nil
}

func (c *Config) repoManager() error {
	if c.KVStoreType != kvstore.InMemory && c.KVStoreType != kvstore.Redis {
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return fmt.Errorf("error while creating db dir: %s", err)
		}
	}

	store, err := kvstore.NewStore(kvstore.Config{
		Type:      c.KVStoreType,
		Datadir:   c.DbDir,
		RedisURL:  c.RedisURL,
		Namespace: fmt.Sprintf("xchwallet:%s", c.Network),
	})
	if err != nil {
		return err
	}

	c.store = store
	c.repo = db.NewService(store)
	return nil
}

func (c *Config) ledgerService() error {
	svc, err := restledger.NewClient(c.LedgerURL, c.LedgerCredential)
	if err != nil {
		return err
	}
	c.ledger = svc
	return nil
}

func (c *Config) marketplaceService() error {
	svc, err := restmarketplace.NewClient(c.MarketplaceURL)
	if err != nil {
		return err
	}
	c.marketplace = svc
	return nil
}

func (c *Config) metadataFetcher() error {
	svc, err := httpmetadata.NewFetcher(httpmetadata.Config{
		Gateway:   c.IPFSGateway,
		RateLimit: c.MetadataRateLimit,
	})
	if err != nil {
		return err
	}
	c.fetcher = svc
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = scheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil {
		return fmt.Errorf("config not validated")
	}

	coins := application.NewCoinStore(c.ledger, nil, application.CoinStoreConfig{
		StalenessThreshold: c.StalenessThreshold,
		MaxRetries:         c.SyncRetries,
		BackoffBase:        c.SyncBackoffBase,
		SyncTimeout:        c.SyncTimeout,
	})
	offers := application.NewOfferLedger(
		coins, c.codec, c.ledger, c.marketplace, c.repo, nil,
	)
	metadata := application.NewMetadataCache(
		c.fetcher, c.repo.Metadata(), nil, application.MetadataCacheConfig{
			TTL:          c.MetadataTTL,
			FetchTimeout: c.MetadataTimeout,
		},
	)

	c.svc = application.NewService(
		application.ServiceConfig{
			SyncInterval:        c.SyncInterval,
			OfferExpiryInterval: c.OfferExpirySweepInterval,
		},
		c.codec, c.ledger, c.scheduler, c.repo, coins, offers, metadata,
	)
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
