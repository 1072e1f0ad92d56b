package billing

import (
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
)

// Charge is the derived price breakdown shown before a save. It is never
// persisted; the sale ledger captures the figures at the moment of sale.
type Charge struct {
	Price       float64 `json:"price"`
	PricePerDay float64 `json:"price_per_day"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Calculate derives the charge for a plan with the given downtime credit.
//
// A nil plan yields the all-zero charge: "no plan selected yet" is a defined
// state, not an error. A non-positive cycle length yields a zero daily rate
// so the math never divides by zero. The discount itself is not clamped and
// may exceed the price; only the final total is floored at zero.
//
// Negative downtimeDays increases the total instead of discounting it.
// Keeping downtime non-negative is the form's job, not this function's.
func Calculate(plan *plandomain.Plan, downtimeDays float64) Charge {
	if plan == nil {
		return Charge{}
	}

	perDay := plan.PricePerDay()
	discount := perDay * downtimeDays

	total := plan.Price - discount
	if total < 0 {
		total = 0
	}

	return Charge{
		Price:       plan.Price,
		PricePerDay: perDay,
		Discount:    discount,
		Total:       total,
	}
}
