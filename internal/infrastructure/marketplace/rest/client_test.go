package restmarketplace_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	restmarketplace "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/marketplace/rest"
	"github.com/stretchr/testify/require"
)

func TestPostOffer(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		response    string
		expectedID  string
		expectedURL string
		retryable   bool
		err         bool
	}{
		{
			name:        "with public url",
			status:      http.StatusOK,
			response:    `{"success":true,"id":"abc","public_url":"https://market.test/o/abc"}`,
			expectedID:  "abc",
			expectedURL: "https://market.test/o/abc",
		},
		{
			name:        "derived public url",
			status:      http.StatusOK,
			response:    `{"success":true,"id":"abc"}`,
			expectedID:  "abc",
			expectedURL: "/offers/abc",
		},
		{
			name:     "rejected",
			status:   http.StatusOK,
			response: `{"success":false,"error_message":"offer already taken"}`,
			err:      true,
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			response:  `bad gateway`,
			err:       true,
			retryable: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/v1/offers", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "offer1blob", body["offer"])
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.response))
			}))
			defer server.Close()

			client, err := restmarketplace.NewClient(server.URL)
			require.NoError(t, err)

			listing, err := client.PostOffer(context.Background(), "offer1blob")
			if tc.err {
				require.Error(t, err)
				require.Nil(t, listing)
				require.Equal(t, tc.retryable, domain.IsRetryable(err))
				if tc.retryable {
					var httpErr *domain.HTTPError
					require.True(t, errors.As(err, &httpErr))
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedID, listing.ID)
			if tc.expectedURL[0] == '/' {
				require.Equal(t, server.URL+tc.expectedURL, listing.PublicURL)
			} else {
				require.Equal(t, tc.expectedURL, listing.PublicURL)
			}
		})
	}
}

func TestInvalidURL(t *testing.T) {
	_, err := restmarketplace.NewClient("not a url")
	require.Error(t, err)
}
