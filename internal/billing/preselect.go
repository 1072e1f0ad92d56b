package billing

import (
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
)

// Preselect picks the plan a form should start on for an existing client.
// Precedence: exact name match on the stored hint, then the first plan in
// catalog order, then nil when the catalog is empty. Catalog order is the
// store's listing order; no sorting is applied here.
func Preselect(plans []plandomain.Plan, hint string) *plandomain.Plan {
	if hint != "" {
		for i := range plans {
			if plans[i].Name == hint {
				return &plans[i]
			}
		}
	}
	if len(plans) > 0 {
		return &plans[0]
	}
	return nil
}
