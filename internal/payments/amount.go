package payments

import (
	"errors"
	"math"
)

// ErrInvalidAmount rejects non-positive or non-finite charge amounts before
// any provider call is made.
var ErrInvalidAmount = errors.New("amount must be a positive monetary value")

// halfUpEpsilon absorbs binary-float drift on exact half-cent boundaries:
// decimal literals like 19.995 sit a few ulps below .5 after scaling
// (19.995 * 100 is 1999.4999...), while genuinely sub-half amounts such as
// 19.9949 are orders of magnitude further from the boundary.
const halfUpEpsilon = 1e-9

// ToMinorUnits converts a major-unit amount (e.g. 19.995 USD) to minor units
// (cents) using round-half-up in a single step: 19.995 becomes 2000, never
// 1999, and 19.9949 becomes 1999.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}

	return int64(math.Floor(amount*100 + 0.5 + halfUpEpsilon)), nil
}
