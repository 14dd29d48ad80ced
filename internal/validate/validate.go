// Package validate implements the gateway's syntactic input checks:
// addresses, hex-or-decimal integers up to 256 bits, and detached
// ECDSA signatures. None of these functions touch the chain, the
// cache, or the ledger — they are pure syntax checks, grounded on the
// same validate-then-default pattern the teacher's geth exercises
// follow (nil/empty checks first, defaults second, work third).
package validate

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address accepts a 0x-prefixed, 20-byte hex-encoded address and
// returns the decoded common.Address. ok is false for anything else:
// wrong length, missing prefix, non-hex characters.
func Address(s string) (addr common.Address, ok bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, false
	}
	hexPart := s[2:]
	if len(hexPart) != 2*common.AddressLength {
		return common.Address{}, false
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// Int parses x as either a decimal integer or a 0x-prefixed hex
// string, rejecting negative values and values that don't fit in 256
// bits. It returns (nil, false) on any parse failure, including when
// x represents a value too large for a uint256 word.
func Int(x string) (*big.Int, bool) {
	if x == "" {
		return nil, false
	}
	neg := strings.HasPrefix(x, "-")
	if neg {
		return nil, false
	}

	var n *big.Int
	if strings.HasPrefix(x, "0x") || strings.HasPrefix(x, "0X") {
		u, err := uint256.FromHex(x)
		if err != nil {
			return nil, false
		}
		n = u.ToBig()
	} else {
		var ok bool
		n, ok = new(big.Int).SetString(x, 10)
		if !ok {
			return nil, false
		}
		if n.Sign() < 0 {
			return nil, false
		}
		if _, overflow := uint256.FromBig(n); overflow {
			return nil, false
		}
	}
	return n, true
}

// PositiveInt is Int plus the caller's requirement, per spec §4.1, that
// zero is rejected in contexts that need a strictly positive amount
// (the skeleton/submission "value" field).
func PositiveInt(x string) (*big.Int, bool) {
	n, ok := Int(x)
	if !ok || n.Sign() == 0 {
		return nil, false
	}
	return n, true
}

// Signature accepts a 0x-prefixed, 65-byte hex-encoded detached ECDSA
// signature (R || S || V).
func Signature(s string) ([]byte, bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, false
	}
	hexPart := s[2:]
	if len(hexPart) != 2*65 {
		return nil, false
	}
	b, err := hex.DecodeString(hexPart)
	if err != nil {
		return nil, false
	}
	return b, true
}
