package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"lukechampine.com/uint128"
)

const HashLen = 32

// Hash is a 32-byte chain identifier such as a coin id, puzzle hash or
// asset id.
type Hash [HashLen]byte

func HashFromHex(s string) (Hash, error) {
	var h Hash
	buf, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %s", s, err)
	}
	if len(buf) != HashLen {
		return h, fmt.Errorf("invalid hash %q: got %d bytes, expected %d", s, len(buf), HashLen)
	}
	copy(h[:], buf)
	return h, nil
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Amount is a non-negative quantity of mojos or asset units.
type Amount struct {
	v uint128.Uint128
}

func NewAmount(v uint64) Amount {
	return Amount{uint128.From64(v)}
}

func AmountFromBig(i *big.Int) (Amount, error) {
	if i.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount must not be negative")
	}
	if i.BitLen() > 128 {
		return Amount{}, fmt.Errorf("amount overflows 128 bits")
	}
	return Amount{uint128.FromBig(new(big.Int).Set(i))}, nil
}

// ParseAmount parses a base-10 unsigned integer.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return Amount{}, fmt.Errorf("invalid amount %q", s)
		}
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return AmountFromBig(i)
}

// Add returns a+b. It panics on overflow, use CheckedAdd for amounts that
// come from user input.
func (a Amount) Add(b Amount) Amount {
	return Amount{a.v.Add(b.v)}
}

// CheckedAdd returns a+b, or ErrAmountOverflow if the sum does not fit in
// 128 bits.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	sum := a.v.AddWrap(b.v)
	if sum.Cmp(a.v) < 0 {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, a, b)
	}
	return Amount{sum}, nil
}

// Sub returns a-b. It panics if b > a.
func (a Amount) Sub(b Amount) Amount {
	return Amount{a.v.Sub(b.v)}
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Big() *big.Int {
	return a.v.Big()
}

func (a Amount) String() string {
	return a.v.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a decimal string and a bare JSON number, since
// amounts above 2^53 are commonly quoted by services.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		return fmt.Errorf("amount must not be null")
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// SumAmounts returns the exact sum of the given amounts.
func SumAmounts(amounts ...Amount) Amount {
	total := Amount{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

type Coin struct {
	ParentCoinInfo Hash   `json:"parent_coin_info"`
	PuzzleHash     Hash   `json:"puzzle_hash"`
	Amount         Amount `json:"amount"`
}

// ID returns the coin id: sha256(parent || puzzle hash || amount), with the
// amount serialized as a minimal signed big-endian integer.
func (c Coin) ID() Hash {
	h := sha256.New()
	h.Write(c.ParentCoinInfo[:])
	h.Write(c.PuzzleHash[:])
	h.Write(amountBytes(c.Amount))

	var id Hash
	copy(id[:], h.Sum(nil))
	return id
}

func (c Coin) GetAmount() Amount {
	return c.Amount
}

func amountBytes(a Amount) []byte {
	if a.IsZero() {
		return nil
	}
	buf := a.Big().Bytes()
	if buf[0]&0x80 != 0 {
		buf = append([]byte{0x00}, buf...)
	}
	return buf
}

// HydratedCoin is a coin enriched with its creation height and the driver
// describing what the coin represents.
type HydratedCoin struct {
	Coin
	CreatedHeight uint64
	Driver        DriverInfo
}

func (c HydratedCoin) Kind() DriverKind {
	if c.Driver == nil {
		return StandardKind
	}
	return c.Driver.Kind()
}

type hydratedCoinJSON struct {
	Coin          Coin            `json:"coin"`
	CreatedHeight uint64          `json:"created_height"`
	Driver        json.RawMessage `json:"driver"`
}

func (c HydratedCoin) MarshalJSON() ([]byte, error) {
	driver, err := MarshalDriver(c.Driver)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hydratedCoinJSON{c.Coin, c.CreatedHeight, driver})
}

func (c *HydratedCoin) UnmarshalJSON(data []byte) error {
	var raw hydratedCoinJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	driver, err := UnmarshalDriver(raw.Driver)
	if err != nil {
		return err
	}
	*c = HydratedCoin{raw.Coin, raw.CreatedHeight, driver}
	return nil
}
