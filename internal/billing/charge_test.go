package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
)

func TestCalculate_NoPlanSelected(t *testing.T) {
	assert.Equal(t, Charge{}, Calculate(nil, 0))
	assert.Equal(t, Charge{}, Calculate(nil, 12))
}

func TestCalculate_StandardDiscount(t *testing.T) {
	p := &plandomain.Plan{Price: 1000, CycleDays: 30}

	charge := Calculate(p, 5)
	assert.Equal(t, 1000.0, charge.Price)
	assert.InDelta(t, 33.3333, charge.PricePerDay, 0.0001)
	assert.InDelta(t, 166.6666, charge.Discount, 0.0001)
	assert.InDelta(t, 833.3333, charge.Total, 0.0001)
}

func TestCalculate_DiscountExceedsPrice(t *testing.T) {
	p := &plandomain.Plan{Price: 500, CycleDays: 30}

	charge := Calculate(p, 40)
	// The breakdown keeps the oversized discount; only the total clamps.
	assert.InDelta(t, 666.6666, charge.Discount, 0.0001)
	assert.Equal(t, 0.0, charge.Total)
}

func TestCalculate_ZeroCycleDays(t *testing.T) {
	p := &plandomain.Plan{Price: 750, CycleDays: 0}

	for _, days := range []float64{0, 1, 365} {
		charge := Calculate(p, days)
		assert.Equal(t, 0.0, charge.PricePerDay)
		assert.Equal(t, 0.0, charge.Discount)
		assert.Equal(t, 750.0, charge.Total)
		assert.False(t, math.IsNaN(charge.Total))
		assert.False(t, math.IsInf(charge.PricePerDay, 0))
	}
}

func TestCalculate_NegativeCycleDays(t *testing.T) {
	p := &plandomain.Plan{Price: 300, CycleDays: -7}

	charge := Calculate(p, 3)
	assert.Equal(t, 0.0, charge.PricePerDay)
	assert.Equal(t, 300.0, charge.Total)
}

func TestCalculate_ZeroDowntime(t *testing.T) {
	p := &plandomain.Plan{Price: 450, CycleDays: 30}

	charge := Calculate(p, 0)
	assert.Equal(t, 0.0, charge.Discount)
	assert.Equal(t, 450.0, charge.Total)
}

func TestCalculate_TotalBoundedByPrice(t *testing.T) {
	plans := []plandomain.Plan{
		{Price: 0, CycleDays: 30},
		{Price: 99.99, CycleDays: 7},
		{Price: 1500, CycleDays: 30},
		{Price: 20000, CycleDays: 365},
	}

	for _, p := range plans {
		for _, days := range []float64{0, 1, 3, 29, 30, 31, 1000} {
			charge := Calculate(&p, days)
			assert.GreaterOrEqual(t, charge.Total, 0.0)
			assert.LessOrEqual(t, charge.Total, p.Price)
		}
	}
}

func TestCalculate_NegativeDowntimeIncreasesTotal(t *testing.T) {
	// Not clamped: the stored behavior raises the total above the plan
	// price when a negative day count sneaks past the form.
	p := &plandomain.Plan{Price: 1000, CycleDays: 30}

	charge := Calculate(p, -3)
	assert.Less(t, charge.Discount, 0.0)
	assert.Greater(t, charge.Total, p.Price)
}
