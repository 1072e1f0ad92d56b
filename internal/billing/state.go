// Package billing holds the pure subscription-state and charge computations
// shared by the client activation, renewal and quoting paths. Nothing in this
// package performs I/O.
package billing

import (
	"encoding/json"
	"strings"
)

// BillingType says whether a client pays before or after the service period.
type BillingType string

const (
	Prepaid  BillingType = "prepaid"
	Postpaid BillingType = "postpaid"
)

// State is the subscription metadata persisted as a JSON blob inside the
// router lease's free-text comment field. The router offers no structured
// metadata per lease, so this shim is the wire contract: field names and the
// billingType literals must not change.
type State struct {
	DueDate     string      `json:"dueDate,omitempty"`
	BillingType BillingType `json:"billingType"`
	PlanName    string      `json:"planName,omitempty"`
}

// DefaultState is what a missing or unreadable annotation decodes to.
func DefaultState() State {
	return State{BillingType: Prepaid}
}

// DecodeState parses a raw lease comment into a State. Legacy comments are
// free text, so every parse failure is absorbed and yields the default state;
// the decoder never reports an error upward.
//
// billingType is honored only when it is exactly "prepaid" or "postpaid";
// null, numbers and typos all fall back to prepaid. dueDate and planName are
// carried through verbatim without validation against a calendar or the live
// plan catalog.
func DecodeState(raw string) State {
	state := DefaultState()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return state
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return state
	}

	if v, ok := fields["dueDate"].(string); ok {
		state.DueDate = v
	}
	if v, ok := fields["billingType"].(string); ok {
		switch BillingType(v) {
		case Prepaid, Postpaid:
			state.BillingType = BillingType(v)
		}
	}
	if v, ok := fields["planName"].(string); ok {
		state.PlanName = v
	}

	return state
}

// EncodeState serializes the full state as one JSON blob. This is a
// whole-object overwrite: any field the caller did not repopulate is gone
// from the stored annotation. Partial patches are intentionally unsupported.
func EncodeState(state State) string {
	if state.BillingType != Postpaid {
		state.BillingType = Prepaid
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		// A flat struct of strings cannot fail to marshal; keep the
		// contract of never propagating codec errors regardless.
		return `{"billingType":"prepaid"}`
	}
	return string(encoded)
}
