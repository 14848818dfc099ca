package restledger

import (
	"fmt"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/lightningnetwork/lnd/fn/v2"
)

type publicKeyResponse struct {
	Address            string      `json:"address"`
	PuzzleHash         domain.Hash `json:"puzzle_hash"`
	SyntheticPublicKey string      `json:"synthetic_public_key"`
}

func (r publicKeyResponse) toInfo() *domain.PublicKeyInfo {
	key := fn.None[string]()
	if r.SyntheticPublicKey != "" {
		key = fn.Some(r.SyntheticPublicKey)
	}
	return &domain.PublicKeyInfo{
		Address:      r.Address,
		PuzzleHash:   r.PuzzleHash,
		SyntheticKey: key,
	}
}

type unspentCoinsResponse struct {
	Coins []wireCoin `json:"coins"`
}

type nftMetadata struct {
	DataURIs      []string `json:"data_uris"`
	MetadataURIs  []string `json:"metadata_uris"`
	EditionNumber uint64   `json:"edition_number"`
	EditionTotal  uint64   `json:"edition_total"`
}

type wireDriver struct {
	Type       string       `json:"type"`
	AssetID    *domain.Hash `json:"asset_id"`
	LauncherID *domain.Hash `json:"launcher_id"`
	Metadata   *nftMetadata `json:"metadata"`
}

// wireCoin accepts both the nested driver shape and the legacy one where
// driver fields sit next to the coin.
type wireCoin struct {
	Coin          domain.Coin `json:"coin"`
	CreatedHeight uint64      `json:"created_height"`
	Driver        *wireDriver `json:"driver"`

	Type          string       `json:"type"`
	AssetID       *domain.Hash `json:"asset_id"`
	LauncherID    *domain.Hash `json:"launcher_id"`
	MetadataURIs  []string     `json:"metadata_uris"`
	EditionNumber uint64       `json:"edition_number"`
	EditionTotal  uint64       `json:"edition_total"`
}

func (c wireCoin) toHydratedCoin() (domain.HydratedCoin, error) {
	driver := c.Driver
	if driver == nil {
		driver = &wireDriver{
			Type:       c.Type,
			AssetID:    c.AssetID,
			LauncherID: c.LauncherID,
			Metadata: &nftMetadata{
				MetadataURIs:  c.MetadataURIs,
				EditionNumber: c.EditionNumber,
				EditionTotal:  c.EditionTotal,
			},
		}
	}
	info, err := driver.toDriverInfo()
	if err != nil {
		return domain.HydratedCoin{}, fmt.Errorf("coin %s: %s", c.Coin.ID(), err)
	}
	return domain.HydratedCoin{
		Coin:          c.Coin,
		CreatedHeight: c.CreatedHeight,
		Driver:        info,
	}, nil
}

func (d *wireDriver) toDriverInfo() (domain.DriverInfo, error) {
	switch d.Type {
	case "", "standard", "xch":
		return domain.StandardDriver{}, nil
	case "cat", "cat2":
		if d.AssetID == nil {
			return nil, fmt.Errorf("cat coin without asset id")
		}
		return domain.CATDriver{AssetID: *d.AssetID}, nil
	case "nft":
		if d.LauncherID == nil {
			return nil, fmt.Errorf("nft coin without launcher id")
		}
		nft := domain.NFTDriver{LauncherID: *d.LauncherID}
		if d.Metadata != nil {
			nft.MetadataURIs = d.Metadata.MetadataURIs
			nft.Edition = domain.Edition{
				Number: d.Metadata.EditionNumber,
				Total:  d.Metadata.EditionTotal,
			}
		}
		return nft, nil
	default:
		return nil, fmt.Errorf("unsupported coin type %q", d.Type)
	}
}

type spendRequest struct {
	Coins              []domain.Coin `json:"coins"`
	RecipientPuzzle    domain.Hash   `json:"recipient_puzzle_hash"`
	Amount             domain.Amount `json:"amount"`
	Fee                domain.Amount `json:"fee"`
	SyntheticPublicKey string        `json:"synthetic_public_key"`
}

type spendResponse struct {
	TransactionID string `json:"transaction_id"`
}

type offerRequest struct {
	OfferedCoin        domain.Coin   `json:"offered_coin"`
	RequestedAmount    domain.Amount `json:"requested_amount"`
	RequestedAssetID   *domain.Hash  `json:"requested_asset_id,omitempty"`
	DepositPuzzleHash  domain.Hash   `json:"deposit_puzzle_hash"`
	SyntheticPublicKey string        `json:"synthetic_public_key"`
}

type offerResponse struct {
	Offer string `json:"offer"`
}
