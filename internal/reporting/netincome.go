package reporting

import (
	"math"
	"regexp"

	"github.com/tradebill/tradebill/internal/billing"
)

// depositPattern marks deposit invoices ("acompte" on French paperwork). A
// deposit is pure cash-flow with no labor margin recognized yet.
// TODO: replace the keyword heuristic with an explicit is_deposit column once
// existing documents have been back-filled.
var depositPattern = regexp.MustCompile(`(?i)\b(acompte|deposit)\b`)

// IsDeposit reports whether the document is judged a deposit: the title
// matches the keyword pattern, or any positively-priced item description does.
func IsDeposit(doc billing.Document) bool {
	if depositPattern.MatchString(doc.Title) {
		return true
	}
	for _, item := range doc.Items {
		if item.UnitPrice > 0 && depositPattern.MatchString(item.Description) {
			return true
		}
	}
	return false
}

// EstimateNetIncome estimates the labor-only net result of a paid document:
// the billed amount minus a tax-adjusted, deposit-adjusted material cost.
//
// Negative unit prices represent a previously paid deposit subtracted from a
// final invoice; their absolute value reduces the material cost, floored at 0.
func EstimateNetIncome(doc billing.Document) float64 {
	if IsDeposit(doc) {
		return 0
	}

	var itemsTotalExclTax, materialExclTax, deductionExclTax float64
	for _, item := range doc.Items {
		line := item.Quantity * item.UnitPrice
		itemsTotalExclTax += line
		if item.LineType == billing.LineTypeMaterial {
			materialExclTax += line
		}
		if item.UnitPrice < 0 {
			deductionExclTax += item.Quantity * math.Abs(item.UnitPrice)
		}
	}

	// Guards divide-by-zero and manually overridden totals.
	taxRatio := 1.0
	if itemsTotalExclTax > 0.01 {
		taxRatio = doc.Totals.TotalInclTax / itemsTotalExclTax
	}

	adjustedMaterialExclTax := math.Max(0, materialExclTax-deductionExclTax)
	return doc.Totals.TotalInclTax - adjustedMaterialExclTax*taxRatio
}
