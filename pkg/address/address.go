package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	MainnetPrefix = "xch"
	TestnetPrefix = "txch"

	// PuzzleHashLen is the size in bytes of a puzzle hash.
	PuzzleHashLen = 32
	// puzzleHashWords is the number of 5-bit groups encoding a puzzle hash.
	puzzleHashWords = 52
)

var (
	ErrMalformedEncoding  = errors.New("malformed encoding")
	ErrWrongLength        = errors.New("wrong length")
	ErrUnsupportedPrefix  = errors.New("unsupported prefix")
	ErrInvalidHashLength  = errors.New("invalid puzzle hash length")
	defaultCodec          = NewCodec(Mainnet)
	supportedNetworkCodes = map[Network][]string{
		Mainnet: {MainnetPrefix},
		Testnet: {MainnetPrefix, TestnetPrefix},
	}
)

type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) String() string {
	switch n {
	case Testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// Prefix returns the prefix used to encode addresses on the network.
func (n Network) Prefix() string {
	if n == Testnet {
		return TestnetPrefix
	}
	return MainnetPrefix
}

// ParseNetwork maps a configuration string to a Network.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "mainnet", "":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	default:
		return Mainnet, fmt.Errorf("unknown network %s", s)
	}
}

// Error reports a failed address operation along with the kind of failure,
// which can be matched with errors.Is.
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("address %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("address %s %q: %s", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Decoded struct {
	Prefix     string
	PuzzleHash [PuzzleHashLen]byte
}

// Codec converts between bech32m addresses and puzzle hashes for the set of
// prefixes accepted by a network.
type Codec struct {
	network  Network
	prefixes map[string]struct{}
}

func NewCodec(network Network) *Codec {
	prefixes := make(map[string]struct{})
	for _, p := range supportedNetworkCodes[network] {
		prefixes[p] = struct{}{}
	}
	return &Codec{network, prefixes}
}

func (c *Codec) Network() Network {
	return c.network
}

func (c *Codec) Supports(prefix string) bool {
	_, ok := c.prefixes[prefix]
	return ok
}

func (c *Codec) Decode(addr string) (*Decoded, error) {
	prefix, words, version, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return nil, &Error{"decode", addr, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)}
	}
	if version != bech32.VersionM {
		return nil, &Error{"decode", addr, fmt.Errorf("%w: not a bech32m checksum", ErrMalformedEncoding)}
	}
	if !c.Supports(prefix) {
		return nil, &Error{"decode", addr, fmt.Errorf("%w %s", ErrUnsupportedPrefix, prefix)}
	}
	if len(words) != puzzleHashWords {
		return nil, &Error{"decode", addr, fmt.Errorf(
			"%w: got %d words, expected %d", ErrWrongLength, len(words), puzzleHashWords,
		)}
	}
	buf, err := bech32.ConvertBits(words, 5, 8, false)
	if err != nil {
		return nil, &Error{"decode", addr, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)}
	}
	if len(buf) != PuzzleHashLen {
		return nil, &Error{"decode", addr, fmt.Errorf(
			"%w: got %d bytes, expected %d", ErrWrongLength, len(buf), PuzzleHashLen,
		)}
	}

	decoded := &Decoded{Prefix: prefix}
	copy(decoded.PuzzleHash[:], buf)
	return decoded, nil
}

// Encode returns the bech32m address of puzzleHash with the given prefix.
// Only the prefixes of the codec network are accepted, any other fails with
// ErrUnsupportedPrefix, so that an address is never produced for a network
// the wallet cannot spend on.
func (c *Codec) Encode(puzzleHash []byte, prefix string) (string, error) {
	if len(puzzleHash) != PuzzleHashLen {
		return "", &Error{"encode", "", fmt.Errorf(
			"%w: got %d bytes, expected %d", ErrInvalidHashLength, len(puzzleHash), PuzzleHashLen,
		)}
	}
	if !c.Supports(prefix) {
		return "", &Error{"encode", "", fmt.Errorf("%w %s", ErrUnsupportedPrefix, prefix)}
	}
	words, err := bech32.ConvertBits(puzzleHash, 8, 5, true)
	if err != nil {
		return "", &Error{"encode", "", err}
	}
	return bech32.EncodeM(prefix, words)
}

// Decode parses a mainnet address.
func Decode(addr string) (*Decoded, error) {
	return defaultCodec.Decode(addr)
}

// Encode returns the mainnet address of the given puzzle hash.
func Encode(puzzleHash []byte) (string, error) {
	return defaultCodec.Encode(puzzleHash, MainnetPrefix)
}
