package schema

import (
	"fmt"
	"math/big"
)

// Ratio holds covered and total counts for one element type.
type Ratio struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

// Add returns the element-wise sum of two ratios.
func (r Ratio) Add(o Ratio) Ratio {
	return Ratio{Covered: r.Covered + o.Covered, Total: r.Total + o.Total}
}

// Valid reports whether 0 <= Covered <= Total.
func (r Ratio) Valid() bool {
	return r.Covered >= 0 && r.Total >= 0 && r.Covered <= r.Total
}

// IsZero reports whether the ratio carries no data.
func (r Ratio) IsZero() bool {
	return r.Total == 0
}

// Dominates reports whether r describes at least as much as o on both counts.
func (r Ratio) Dominates(o Ratio) bool {
	return r.Total >= o.Total && r.Covered >= o.Covered
}

// Percent returns the coverage percentage. The second value is false when
// there is no data (Total == 0).
func (r Ratio) Percent() (float64, bool) {
	if r.Total == 0 {
		return 0, false
	}
	return float64(r.Covered) * 100 / float64(r.Total), true
}

// String renders the ratio as "covered/total".
func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Covered, r.Total)
}

// PercentagePointDelta returns round(current% - reference%) in integer percentage
// points, rounding half away from zero. The arithmetic is exact over the counts.
// ok is false when either side has no data.
func PercentagePointDelta(current, reference Ratio) (delta int, ok bool) {
	if current.Total == 0 || reference.Total == 0 {
		return 0, false
	}
	// 100 * (cc*rt - rc*ct) / (ct*rt)
	cc, ct := big.NewInt(int64(current.Covered)), big.NewInt(int64(current.Total))
	rc, rt := big.NewInt(int64(reference.Covered)), big.NewInt(int64(reference.Total))

	num := new(big.Int).Sub(new(big.Int).Mul(cc, rt), new(big.Int).Mul(rc, ct))
	num.Mul(num, big.NewInt(100))
	den := new(big.Int).Mul(ct, rt)

	return roundHalfAwayFromZero(num, den), true
}

// roundHalfAwayFromZero divides num by a positive den and rounds ties away from zero.
func roundHalfAwayFromZero(num, den *big.Int) int {
	neg := num.Sign() < 0
	abs := new(big.Int).Abs(num)

	// (2*|num| + den) / (2*den)
	twice := new(big.Int).Lsh(abs, 1)
	twice.Add(twice, den)
	q := new(big.Int).Quo(twice, new(big.Int).Lsh(den, 1))

	if neg {
		q.Neg(q)
	}
	return int(q.Int64())
}
