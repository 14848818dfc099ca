package domain

import (
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	AnyKind DriverKind = iota
	StandardKind
	CATKind
	NFTKind
)

type DriverKind int

func (k DriverKind) String() string {
	switch k {
	case StandardKind:
		return "standard"
	case CATKind:
		return "cat"
	case NFTKind:
		return "nft"
	default:
		return "any"
	}
}

func ParseDriverKind(s string) (DriverKind, error) {
	switch s {
	case "any", "":
		return AnyKind, nil
	case "standard", "xch":
		return StandardKind, nil
	case "cat":
		return CATKind, nil
	case "nft":
		return NFTKind, nil
	default:
		return AnyKind, fmt.Errorf("unknown coin kind %s", s)
	}
}

// DriverInfo describes what a coin represents. It is resolved once when coins
// are ingested and never inferred again from the payload shape.
type DriverInfo interface {
	Kind() DriverKind
	isDriverInfo()
}

func (StandardDriver) isDriverInfo() {}
func (CATDriver) isDriverInfo()      {}
func (NFTDriver) isDriverInfo()      {}

type StandardDriver struct{}

func (StandardDriver) Kind() DriverKind { return StandardKind }

type CATDriver struct {
	AssetID Hash
}

func (CATDriver) Kind() DriverKind { return CATKind }

type Edition struct {
	Number uint64 `json:"number"`
	Total  uint64 `json:"total"`
}

type NFTDriver struct {
	LauncherID   Hash
	MetadataURIs []string
	Edition      Edition
}

func (NFTDriver) Kind() DriverKind { return NFTKind }

type driverEnvelope struct {
	Type         string   `json:"type"`
	AssetID      *Hash    `json:"asset_id,omitempty"`
	LauncherID   *Hash    `json:"launcher_id,omitempty"`
	MetadataURIs []string `json:"metadata_uris,omitempty"`
	Edition      *Edition `json:"edition,omitempty"`
}

// MarshalDriver encodes a driver with an explicit type tag.
func MarshalDriver(d DriverInfo) ([]byte, error) {
	env := driverEnvelope{Type: StandardKind.String()}
	switch v := d.(type) {
	case nil, StandardDriver:
	case CATDriver:
		env.Type = CATKind.String()
		env.AssetID = &v.AssetID
	case NFTDriver:
		env.Type = NFTKind.String()
		env.LauncherID = &v.LauncherID
		env.MetadataURIs = v.MetadataURIs
		env.Edition = &v.Edition
	default:
		return nil, fmt.Errorf("unknown driver %T", d)
	}
	return json.Marshal(env)
}

func UnmarshalDriver(data []byte) (DriverInfo, error) {
	if len(data) == 0 || string(data) == "null" {
		return StandardDriver{}, nil
	}
	var env driverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid driver: %s", err)
	}
	switch env.Type {
	case StandardKind.String():
		return StandardDriver{}, nil
	case CATKind.String():
		if env.AssetID == nil {
			return nil, fmt.Errorf("invalid cat driver: missing asset id")
		}
		return CATDriver{*env.AssetID}, nil
	case NFTKind.String():
		if env.LauncherID == nil {
			return nil, fmt.Errorf("invalid nft driver: missing launcher id")
		}
		nft := NFTDriver{LauncherID: *env.LauncherID, MetadataURIs: env.MetadataURIs}
		if env.Edition != nil {
			nft.Edition = *env.Edition
		}
		return nft, nil
	default:
		return nil, fmt.Errorf("unknown driver type %q", env.Type)
	}
}

// CoinFilter selects coins by kind, optionally narrowed to a single CAT
// asset.
type CoinFilter struct {
	Kind    DriverKind
	AssetID fn.Option[Hash]
}

var (
	AnyCoins      = CoinFilter{Kind: AnyKind}
	StandardCoins = CoinFilter{Kind: StandardKind}
	NFTCoins      = CoinFilter{Kind: NFTKind}
)

func CATCoins(assetID Hash) CoinFilter {
	return CoinFilter{Kind: CATKind, AssetID: fn.Some(assetID)}
}

func (f CoinFilter) Matches(c HydratedCoin) bool {
	if f.Kind == AnyKind {
		return true
	}
	if c.Kind() != f.Kind {
		return false
	}
	if f.Kind != CATKind || f.AssetID.IsNone() {
		return true
	}
	cat, ok := c.Driver.(CATDriver)
	return ok && cat.AssetID == f.AssetID.UnwrapOr(Hash{})
}

func FilterCoins(coins []HydratedCoin, filter CoinFilter) []HydratedCoin {
	filtered := make([]HydratedCoin, 0, len(coins))
	for _, c := range coins {
		if filter.Matches(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
