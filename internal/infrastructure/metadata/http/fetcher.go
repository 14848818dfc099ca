package httpmetadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	serviceName = "metadata host"
	ipfsScheme  = "ipfs://"

	DefaultGateway     = "https://ipfs.io"
	DefaultMaxBodySize = 1 << 20
)

type Config struct {
	// Gateway is the base url content addressed uris are fetched through.
	Gateway string
	// RateLimit is the max number of requests per second, 0 disables limiting.
	RateLimit   float64
	MaxBodySize int64
}

type fetcher struct {
	gateway     string
	maxBodySize int64
	limiter     *rate.Limiter
	httpClient  *http.Client
}

func NewFetcher(cfg Config) (ports.MetadataFetcher, error) {
	gateway := cfg.Gateway
	if gateway == "" {
		gateway = DefaultGateway
	}
	if _, err := url.ParseRequestURI(gateway); err != nil {
		return nil, fmt.Errorf("invalid ipfs gateway: %s", err)
	}
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &fetcher{
		gateway:     strings.TrimSuffix(gateway, "/"),
		maxBodySize: maxBodySize,
		limiter:     limiter,
		httpClient:  &http.Client{},
	}, nil
}

func (f *fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	target, err := f.resolve(uri)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("fetching metadata from %s", target)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %s", domain.ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.HTTPError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("metadata at %s exceeds %d bytes", uri, f.maxBodySize)
	}
	return body, nil
}

func (f *fetcher) resolve(uri string) (string, error) {
	if strings.HasPrefix(uri, ipfsScheme) {
		path := strings.TrimPrefix(uri, ipfsScheme)
		path = strings.TrimPrefix(path, "ipfs/")
		if path == "" {
			return "", fmt.Errorf("invalid ipfs uri %s", uri)
		}
		return fmt.Sprintf("%s/ipfs/%s", f.gateway, path), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid metadata uri %s: %s", uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported metadata uri scheme %q", u.Scheme)
	}
	return uri, nil
}
