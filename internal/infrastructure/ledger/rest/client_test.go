package restledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	restledger "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/ledger/rest"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

const (
	testAddress    = "xch190vqdjtlpcq27xslcveglfmr4ynfwg7gmw86cnun4acakxrdd6gqmaghgx"
	testPuzzleHash = "0x2bd806c97f0e00af1a1fc3328fa763a9269723c8db8fac4f93af71db186d6e90"
	assetID        = "0xa628c1c2c6fcb74d53746157e438e108eab5c0bb3e5c80ff9b1910b3e4832913"
	launcherID     = "0x0101010101010101010101010101010101010101010101010101010101010101"
	zeroHash       = "0x0000000000000000000000000000000000000000000000000000000000000000"
)

const unspentCoinsBody = `{
  "coins": [
    {
      "coin": {"parent_coin_info": "` + zeroHash + `", "puzzle_hash": "` + testPuzzleHash + `", "amount": 1000000000000},
      "created_height": 10
    },
    {
      "coin": {"parent_coin_info": "` + launcherID + `", "puzzle_hash": "` + testPuzzleHash + `", "amount": "500"},
      "created_height": 11,
      "driver": {"type": "cat", "asset_id": "` + assetID + `"}
    },
    {
      "coin": {"parent_coin_info": "` + assetID + `", "puzzle_hash": "` + testPuzzleHash + `", "amount": 1},
      "created_height": 12,
      "driver": {
        "type": "nft",
        "launcher_id": "` + launcherID + `",
        "metadata": {"metadata_uris": ["https://example.com/1.json"], "edition_number": 1, "edition_total": 5}
      }
    },
    {
      "coin": {"parent_coin_info": "` + testPuzzleHash + `", "puzzle_hash": "` + testPuzzleHash + `", "amount": 1},
      "created_height": 13,
      "type": "nft",
      "launcher_id": "` + launcherID + `",
      "metadata_uris": ["ipfs://legacy/1.json"],
      "edition_number": 2,
      "edition_total": 5
    },
    {
      "coin": {"parent_coin_info": "` + zeroHash + `", "puzzle_hash": "` + zeroHash + `", "amount": 1},
      "created_height": 14,
      "type": "dao"
    }
  ]
}`

type fakeServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	s := &fakeServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestNotAuthenticated(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {})
	client, err := restledger.NewClient(server.URL, "")
	require.NoError(t, err)

	_, err = client.GetPublicKeyInfo(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = client.GetUnspentCoins(context.Background(), testAddress)
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	require.Zero(t, server.calls.Load())

	client.SetCredential("wrong")
	_, err = client.GetPublicKeyInfo(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	require.False(t, domain.IsRetryable(err))
	require.Equal(t, int32(1), server.calls.Load())
}

func TestGetPublicKeyInfo(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wallet/public-key", r.URL.Path)
		w.Write([]byte(`{"address":"` + testAddress + `","puzzle_hash":"` + testPuzzleHash + `","synthetic_public_key":"0xb0"}`))
	})
	client, err := restledger.NewClient(server.URL, "secret")
	require.NoError(t, err)

	info, err := client.GetPublicKeyInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAddress, info.Address)
	require.Equal(t, testPuzzleHash, info.PuzzleHash.String())
	require.Equal(t, "0xb0", info.SyntheticKey.UnwrapOr(""))
}

func TestGetUnspentCoins(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wallet/unspent-coins", r.URL.Path)
		require.Equal(t, testAddress, r.URL.Query().Get("address"))
		w.Write([]byte(unspentCoinsBody))
	})
	client, err := restledger.NewClient(server.URL, "secret")
	require.NoError(t, err)

	coins, err := client.GetUnspentCoins(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, coins, 4)

	require.Equal(t, domain.StandardKind, coins[0].Kind())
	require.Equal(t, "1000000000000", coins[0].Amount.String())
	require.Equal(t, uint64(10), coins[0].CreatedHeight)

	cat, ok := coins[1].Driver.(domain.CATDriver)
	require.True(t, ok)
	require.Equal(t, assetID, cat.AssetID.String())
	require.Equal(t, "500", coins[1].Amount.String())

	nft, ok := coins[2].Driver.(domain.NFTDriver)
	require.True(t, ok)
	require.Equal(t, launcherID, nft.LauncherID.String())
	require.Equal(t, []string{"https://example.com/1.json"}, nft.MetadataURIs)
	require.Equal(t, domain.Edition{Number: 1, Total: 5}, nft.Edition)

	legacy, ok := coins[3].Driver.(domain.NFTDriver)
	require.True(t, ok)
	require.Equal(t, []string{"ipfs://legacy/1.json"}, legacy.MetadataURIs)
	require.Equal(t, domain.Edition{Number: 2, Total: 5}, legacy.Edition)
}

func TestServerErrors(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"internal error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", tc.status)
			})
			client, err := restledger.NewClient(server.URL, "secret")
			require.NoError(t, err)

			_, err = client.GetUnspentCoins(context.Background(), testAddress)
			var httpErr *domain.HTTPError
			require.True(t, errors.As(err, &httpErr))
			require.Equal(t, tc.status, httpErr.StatusCode)
			require.Equal(t, "boom", httpErr.Body)
			require.Equal(t, tc.retryable, domain.IsRetryable(err))
		})
	}
}

func TestSubmit(t *testing.T) {
	puzzleHash, err := domain.HashFromHex(testPuzzleHash)
	require.NoError(t, err)
	asset, err := domain.HashFromHex(assetID)
	require.NoError(t, err)

	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body := make(map[string]interface{})
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/wallet/spend":
			require.Equal(t, "700", body["amount"])
			require.Equal(t, "10", body["fee"])
			require.Equal(t, testPuzzleHash, body["recipient_puzzle_hash"])
			require.Len(t, body["coins"], 2)
			w.Write([]byte(`{"transaction_id":"0xabc"}`))
		case "/wallet/offer":
			require.Equal(t, "5000", body["requested_amount"])
			require.Equal(t, assetID, body["requested_asset_id"])
			require.Equal(t, "0xb0", body["synthetic_public_key"])
			w.Write([]byte(`{"offer":"offer1qqq"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, err := restledger.NewClient(server.URL, "secret")
	require.NoError(t, err)

	txid, err := client.SubmitSpend(context.Background(), ports.SpendRequest{
		Coins:        []domain.Coin{{Amount: domain.NewAmount(500)}, {Amount: domain.NewAmount(300)}},
		Recipient:    puzzleHash,
		Amount:       domain.NewAmount(700),
		Fee:          domain.NewAmount(10),
		SyntheticKey: "0xb0",
	})
	require.NoError(t, err)
	require.Equal(t, "0xabc", txid)

	offer, err := client.SubmitOffer(context.Background(), ports.OfferRequest{
		OfferedCoin: domain.HydratedCoin{Coin: domain.Coin{Amount: domain.NewAmount(1)}},
		Requested: domain.RequestedPayment{
			Amount:  domain.NewAmount(5000),
			AssetID: fn.Some(asset),
		},
		DepositPuzzle: puzzleHash,
		SyntheticKey:  "0xb0",
	})
	require.NoError(t, err)
	require.Equal(t, "offer1qqq", offer)
}
