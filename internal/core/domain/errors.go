package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrSigningKeyUnavailable   = errors.New("signing key unavailable")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrAmountOverflow          = errors.New("amount overflows 128 bits")
	ErrOfferNotFound           = errors.New("offer not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCoinNotOwned            = errors.New("coin not found in account")
	ErrNoSnapshot              = errors.New("account not synced yet")
	ErrCorruptEntry            = errors.New("corrupt entry")
	// ErrTransient marks failures worth retrying, such as timeouts and 5xx
	// responses.
	ErrTransient = errors.New("transient network error")
)

// SyncError is returned when a sync failed after exhausting its attempts.
type SyncError struct {
	Attempts int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed after %d attempt(s): %s", e.Attempts, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// SubmissionError is returned when an offer could not be posted to the
// marketplace. The offer itself stays persisted.
type SubmissionError struct {
	OfferID string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit offer %s to marketplace: %s", e.OfferID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

type InvalidDepositAddressError struct {
	Address string
	Err     error
}

func (e *InvalidDepositAddressError) Error() string {
	return fmt.Sprintf("invalid deposit address: %s", e.Err)
}

func (e *InvalidDepositAddressError) Unwrap() error { return e.Err }

// HTTPError carries the status code of a failed request to a remote
// service.
type HTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded with status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s responded with status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408 {
		return ErrTransient
	}
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return ErrNotAuthenticated
	}
	return nil
}

// IsRetryable tells whether retrying the operation that produced err may
// succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrSigningKeyUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
