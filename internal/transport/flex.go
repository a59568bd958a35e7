package transport

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// flexInt64 accepts a JSON number or a numeric string. Older clients send
// ids and quantities either way.
type flexInt64 struct {
	Value int64
	Set   bool
}

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || string(data) == "null" {
		return nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// 2.0 is still an integer
		d, derr := decimal.NewFromString(raw)
		if derr != nil || !d.Equal(d.Truncate(0)) || !fitsInt64(d) {
			return fmt.Errorf("invalid integer %s", data)
		}
		v = d.IntPart()
	}

	f.Value, f.Set = v, true
	return nil
}

func fitsInt64(d decimal.Decimal) bool {
	return !d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) && !d.LessThan(decimal.NewFromInt(math.MinInt64))
}

// firstInt64 returns the first alias the client actually sent
func firstInt64(candidates ...flexInt64) int64 {
	for _, c := range candidates {
		if c.Set {
			return c.Value
		}
	}
	return 0
}

func firstDecimal(candidates ...*decimal.Decimal) decimal.Decimal {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return decimal.Zero
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// firstStringPtr returns the first alias present in the body, trimmed
func firstStringPtr(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil {
			return trimmed(c)
		}
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
