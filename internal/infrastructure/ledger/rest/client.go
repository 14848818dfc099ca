package restledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	serviceName = "ledger service"

	publicKeyPath    = "/wallet/public-key"
	unspentCoinsPath = "/wallet/unspent-coins"
	spendPath        = "/wallet/spend"
	offerPath        = "/wallet/offer"
)

type ledgerClient struct {
	baseUrl    string
	httpClient *http.Client

	lock       *sync.RWMutex
	credential string
}

// NewClient returns a client of the ledger service REST API. Requests time
// out according to the deadline of their context.
func NewClient(baseUrl string, credential string) (ports.LedgerService, error) {
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid ledger service url: %s", err)
	}
	return &ledgerClient{
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{},
		lock:       &sync.RWMutex{},
		credential: credential,
	}, nil
}

func (c *ledgerClient) SetCredential(credential string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.credential = credential
}

func (c *ledgerClient) GetPublicKeyInfo(ctx context.Context) (*domain.PublicKeyInfo, error) {
	var resp publicKeyResponse
	if err := c.do(ctx, http.MethodGet, publicKeyPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Address == "" {
		return nil, fmt.Errorf("%s returned an empty address", serviceName)
	}
	return resp.toInfo(), nil
}

func (c *ledgerClient) GetUnspentCoins(
	ctx context.Context, address string,
) ([]domain.HydratedCoin, error) {
	path := fmt.Sprintf("%s?address=%s", unspentCoinsPath, url.QueryEscape(address))
	var resp unspentCoinsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	coins := make([]domain.HydratedCoin, 0, len(resp.Coins))
	for _, wc := range resp.Coins {
		coin, err := wc.toHydratedCoin()
		if err != nil {
			log.WithError(err).Warn("skipping unsupported coin")
			continue
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

func (c *ledgerClient) SubmitSpend(ctx context.Context, req ports.SpendRequest) (string, error) {
	body := spendRequest{
		Coins:              req.Coins,
		RecipientPuzzle:    req.Recipient,
		Amount:             req.Amount,
		Fee:                req.Fee,
		SyntheticPublicKey: req.SyntheticKey,
	}
	var resp spendResponse
	if err := c.do(ctx, http.MethodPost, spendPath, body, &resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

func (c *ledgerClient) SubmitOffer(ctx context.Context, req ports.OfferRequest) (string, error) {
	body := offerRequest{
		OfferedCoin:        req.OfferedCoin.Coin,
		RequestedAmount:    req.Requested.Amount,
		DepositPuzzleHash:  req.DepositPuzzle,
		SyntheticPublicKey: req.SyntheticKey,
	}
	req.Requested.AssetID.WhenSome(func(id domain.Hash) {
		body.RequestedAssetID = &id
	})

	var resp offerResponse
	if err := c.do(ctx, http.MethodPost, offerPath, body, &resp); err != nil {
		return "", err
	}
	if resp.Offer == "" {
		return "", fmt.Errorf("%s returned an empty offer", serviceName)
	}
	return resp.Offer, nil
}

func (c *ledgerClient) do(
	ctx context.Context, method, path string, reqBody, respBody interface{},
) error {
	c.lock.RLock()
	credential := c.credential
	c.lock.RUnlock()

	if credential == "" {
		return domain.ErrNotAuthenticated
	}

	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %s", domain.ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.HTTPError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(buf)),
		}
	}

	if err := json.Unmarshal(buf, respBody); err != nil {
		return fmt.Errorf("failed to decode %s response: %s", serviceName, err)
	}
	return nil
}
