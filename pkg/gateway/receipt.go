package gateway

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// MaxReceiptLen is the provider's cap on receipt identifiers.
const MaxReceiptLen = 40

// ReceiptID derives a bounded receipt from the order id and a timestamp. The same
// inputs always give the same receipt, which makes intent creation safe to retry.
func ReceiptID(orderID uint, ts time.Time) string {
	id := lastN(strconv.FormatUint(uint64(orderID), 10), 8)
	stamp := lastN(strconv.FormatInt(ts.UnixMilli(), 10), 8)
	r := "ord_" + id + "_" + stamp
	if len(r) > MaxReceiptLen {
		r = r[:MaxReceiptLen]
	}
	return r
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

var errFractionalMinor = errors.New("amount has more than two decimal places")

// ToMinorUnits converts a major-unit amount (rupees) to the provider's smallest unit (paise).
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, errors.New("amount must not be negative")
	}
	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, errFractionalMinor
	}
	return minor.IntPart(), nil
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
