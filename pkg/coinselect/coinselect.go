package coinselect

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
)

// Candidate is anything that can fund a spend.
type Candidate interface {
	GetAmount() domain.Amount
	ID() domain.Hash
}

type InsufficientFundsError struct {
	Available domain.Amount
	Required  domain.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: available %s, required %s", e.Available, e.Required,
	)
}

// Select picks coins largest first until their sum covers target and returns
// them together with the change left over. The input slice is not modified.
func Select[C Candidate](coins []C, target domain.Amount) ([]C, domain.Amount, error) {
	selected := make([]C, 0)
	if target.IsZero() {
		return selected, domain.Amount{}, nil
	}

	// Ties are broken by coin id so that selection is deterministic.
	sorted := append([]C{}, coins...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := sorted[i].GetAmount().Cmp(sorted[j].GetAmount()); cmp != 0 {
			return cmp > 0
		}
		a, b := sorted[i].ID(), sorted[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})

	selectedAmount := domain.Amount{}
	for _, coin := range sorted {
		if selectedAmount.Cmp(target) >= 0 {
			break
		}
		selected = append(selected, coin)
		sum, err := selectedAmount.CheckedAdd(coin.GetAmount())
		if err != nil {
			// The sum exceeds any target, only part of this coin is needed.
			missing := target.Sub(selectedAmount)
			return selected, coin.GetAmount().Sub(missing), nil
		}
		selectedAmount = sum
	}

	if selectedAmount.Cmp(target) < 0 {
		return nil, domain.Amount{}, &InsufficientFundsError{
			Available: selectedAmount,
			Required:  target,
		}
	}

	return selected, selectedAmount.Sub(target), nil
}

// SelectWithFee selects coins covering both amount and fee. It fails with
// domain.ErrAmountOverflow if amount+fee does not fit in 128 bits.
func SelectWithFee[C Candidate](
	coins []C, amount, fee domain.Amount,
) ([]C, domain.Amount, error) {
	target, err := amount.CheckedAdd(fee)
	if err != nil {
		return nil, domain.Amount{}, err
	}
	return Select(coins, target)
}
