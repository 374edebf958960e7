package chain

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var hashRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

// IsAddress reports whether s is a well-formed hex address, with or without
// the 0x prefix.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NormalizeAddress returns the lower-case, 0x prefixed form of a well-formed
// address so that equal addresses compare equal. Anything else is only
// trimmed and lower-cased.
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return strings.ToLower(s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex())
}

func IsHash(s string) bool {
	return hashRegex.MatchString(s)
}

// ShortenAddress keeps the first 6 and the last 4 characters of address.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatTokenAmount renders amount given in base units with 4 decimal places.
func FormatTokenAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).StringFixed(4)
}
