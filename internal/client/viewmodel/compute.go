package viewmodel

import (
	"strconv"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

// ComputeFor returns the derived-cell hook for a document kind.
func ComputeFor(kind common.DocumentKind) ComputeFunc {
	if kind == common.KindPurchaseOrder {
		return PurchaseOrderCompute
	}
	return TimesheetCompute
}

// TimesheetCompute derives amount = hours × rate. The amount is left
// untouched while either input is blank or unparseable, so a half-typed
// row never shows a misleading value.
func TimesheetCompute(cells map[string]string) {
	deriveAmount(cells, "hours", "rate")
}

// PurchaseOrderCompute derives amount = quantity × unit_cost.
func PurchaseOrderCompute(cells map[string]string) {
	deriveAmount(cells, "quantity", "unit_cost")
}

func deriveAmount(cells map[string]string, aKey, bKey string) {
	a, okA := parseNumber(cells[aKey])
	b, okB := parseNumber(cells[bKey])
	if !okA || !okB {
		return
	}
	cells["amount"] = strconv.FormatFloat(a*b, 'f', 2, 64)
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
