package restmarketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
)

const (
	serviceName = "marketplace"
	offersPath  = "/v1/offers"
)

type postOfferRequest struct {
	Offer string `json:"offer"`
}

type postOfferResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	PublicURL string `json:"public_url"`
	Error     string `json:"error_message"`
}

type marketplaceClient struct {
	baseUrl    string
	httpClient *http.Client
}

func NewClient(baseUrl string) (ports.Marketplace, error) {
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid marketplace url: %s", err)
	}
	return &marketplaceClient{
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{},
	}, nil
}

func (c *marketplaceClient) PostOffer(
	ctx context.Context, offerBlob string,
) (*domain.MarketplaceListing, error) {
	if offerBlob == "" {
		return nil, fmt.Errorf("missing offer")
	}
	buf, err := json.Marshal(postOfferRequest{offerBlob})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseUrl+offersPath, bytes.NewReader(buf),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
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

	var out postOfferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %s", serviceName, err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "offer rejected"
		}
		return nil, fmt.Errorf("%s: %s", serviceName, msg)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%s returned an empty offer id", serviceName)
	}

	publicURL := out.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/offers/%s", c.baseUrl, url.PathEscape(out.ID))
	}
	return &domain.MarketplaceListing{ID: out.ID, PublicURL: publicURL}, nil
}
