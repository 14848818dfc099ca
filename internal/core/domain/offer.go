package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	OfferActive OfferStatus = iota
	OfferCompleted
	OfferCancelled
	OfferExpired
)

type OfferStatus int

func (s OfferStatus) String() string {
	switch s {
	case OfferCompleted:
		return "COMPLETED"
	case OfferCancelled:
		return "CANCELLED"
	case OfferExpired:
		return "EXPIRED"
	default:
		return "ACTIVE"
	}
}

func (s OfferStatus) IsTerminal() bool {
	return s != OfferActive
}

func ParseOfferStatus(s string) (OfferStatus, error) {
	switch strings.ToUpper(s) {
	case "ACTIVE":
		return OfferActive, nil
	case "COMPLETED":
		return OfferCompleted, nil
	case "CANCELLED":
		return OfferCancelled, nil
	case "EXPIRED":
		return OfferExpired, nil
	default:
		return OfferActive, fmt.Errorf("unknown offer status %s", s)
	}
}

// RequestedPayment is what the offer creator asks in exchange for the
// offered coin. An empty AssetID means XCH.
type RequestedPayment struct {
	Amount         Amount
	AssetID        fn.Option[Hash]
	DepositAddress string
}

type SavedOffer struct {
	ID             string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Status         OfferStatus
	OfferedCoin    HydratedCoin
	Requested      RequestedPayment
	OfferBlob      string
	MarketplaceID  fn.Option[string]
	MarketplaceURL fn.Option[string]
	ExpiresAt      fn.Option[time.Time]
}

func NewSavedOffer(
	coin HydratedCoin, requested RequestedPayment, blob string,
	createdAt time.Time, expiresAt fn.Option[time.Time],
) *SavedOffer {
	return &SavedOffer{
		ID:             uuid.New().String(),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		Status:         OfferActive,
		OfferedCoin:    coin,
		Requested:      requested,
		OfferBlob:      blob,
		MarketplaceID:  fn.None[string](),
		MarketplaceURL: fn.None[string](),
		ExpiresAt:      expiresAt,
	}
}

// UpdateStatus moves the offer to status. Setting the current status again
// is a no-op and returns false; leaving a terminal status is rejected.
func (o *SavedOffer) UpdateStatus(status OfferStatus, now time.Time) (bool, error) {
	if o.Status == status {
		return false, nil
	}
	if o.Status.IsTerminal() {
		return false, fmt.Errorf(
			"%w: offer %s is %s, cannot become %s",
			ErrInvalidStatusTransition, o.ID, o.Status, status,
		)
	}
	o.Status = status
	o.UpdatedAt = now
	return true, nil
}

func (o *SavedOffer) SetListing(listing MarketplaceListing, now time.Time) {
	o.MarketplaceID = fn.Some(listing.ID)
	if listing.PublicURL != "" {
		o.MarketplaceURL = fn.Some(listing.PublicURL)
	}
	o.UpdatedAt = now
}

func (o *SavedOffer) IsListed() bool {
	return o.MarketplaceID.IsSome()
}

func (o *SavedOffer) IsExpired(now time.Time) bool {
	if o.Status != OfferActive {
		return false
	}
	expired := false
	o.ExpiresAt.WhenSome(func(t time.Time) {
		expired = !now.Before(t)
	})
	return expired
}

type MarketplaceListing struct {
	ID        string
	PublicURL string
}
