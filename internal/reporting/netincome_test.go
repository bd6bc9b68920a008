package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradebill/tradebill/internal/billing"
)

func TestIsDeposit(t *testing.T) {
	tests := []struct {
		name string
		doc  billing.Document
		want bool
	}{
		{
			name: "title keyword french",
			doc:  billing.Document{Title: "Facture d'acompte salle de bain"},
			want: true,
		},
		{
			name: "title keyword english case insensitive",
			doc:  billing.Document{Title: "DEPOSIT invoice"},
			want: true,
		},
		{
			name: "keyword in positive item",
			doc: billing.Document{
				Title: "Bathroom refit",
				Items: []billing.LineItem{{Description: "Acompte 30%", UnitPrice: 500, Quantity: 1}},
			},
			want: true,
		},
		{
			name: "keyword only in negative deduction line",
			doc: billing.Document{
				Title: "Final invoice",
				Items: []billing.LineItem{{Description: "Moins acompte verse", UnitPrice: -500, Quantity: 1}},
			},
			want: false,
		},
		{
			name: "substring does not match",
			doc:  billing.Document{Title: "Redeposition of tiles"},
			want: false,
		},
		{
			name: "plain document",
			doc:  billing.Document{Title: "Kitchen plumbing"},
			want: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDeposit(tc.doc))
		})
	}
}

func TestEstimateNetIncome(t *testing.T) {
	t.Run("material cost scaled by tax ratio", func(t *testing.T) {
		// 100 excl tax entirely material, billed 120 incl tax. The estimate
		// nets the billed amount against tax-adjusted material cost: zero.
		doc := billing.Document{
			Title:  "Materials only",
			Totals: billing.Totals{TotalInclTax: 120},
			Items: []billing.LineItem{
				{Quantity: 1, UnitPrice: 100, LineType: billing.LineTypeMaterial},
			},
		}
		assert.InDelta(t, 0, EstimateNetIncome(doc), 0.001)
	})

	t.Run("labour is kept", func(t *testing.T) {
		doc := billing.Document{
			Title:  "Bathroom refit",
			Totals: billing.Totals{TotalInclTax: 2244},
			Items: []billing.LineItem{
				{Quantity: 3, UnitPrice: 350, LineType: billing.LineTypeService},
				{Quantity: 1, UnitPrice: 820, LineType: billing.LineTypeMaterial},
			},
		}
		// 2244 - 820 * (2244/1870) = 2244 - 984 = 1260.
		assert.InDelta(t, 1260, EstimateNetIncome(doc), 0.01)
	})

	t.Run("deposit documents contribute nothing", func(t *testing.T) {
		doc := billing.Document{
			Title:  "Acompte 30%",
			Totals: billing.Totals{TotalInclTax: 600},
			Items:  []billing.LineItem{{Quantity: 1, UnitPrice: 500, LineType: billing.LineTypeService}},
		}
		assert.Zero(t, EstimateNetIncome(doc))
	})

	t.Run("negative lines reduce material cost", func(t *testing.T) {
		doc := billing.Document{
			Title:  "Final invoice",
			Totals: billing.Totals{TotalInclTax: 600},
			Items: []billing.LineItem{
				{Quantity: 1, UnitPrice: 800, LineType: billing.LineTypeMaterial},
				{Quantity: 1, UnitPrice: -300, LineType: billing.LineTypeService},
			},
		}
		// items total 500, ratio 1.2, adjusted material 800-300=500.
		// 600 - 500*1.2 = 0.
		assert.InDelta(t, 0, EstimateNetIncome(doc), 0.01)
	})

	t.Run("deductions never push material below zero", func(t *testing.T) {
		doc := billing.Document{
			Title:  "Balance",
			Totals: billing.Totals{TotalInclTax: 120},
			Items: []billing.LineItem{
				{Quantity: 1, UnitPrice: 400, LineType: billing.LineTypeService},
				{Quantity: 1, UnitPrice: -300, LineType: billing.LineTypeService},
			},
		}
		// No material, so the whole billed amount is kept.
		assert.InDelta(t, 120, EstimateNetIncome(doc), 0.001)
	})

	t.Run("near zero items total skips the ratio", func(t *testing.T) {
		doc := billing.Document{
			Title:  "Zero sum",
			Totals: billing.Totals{TotalInclTax: 50},
			Items: []billing.LineItem{
				{Quantity: 1, UnitPrice: 200, LineType: billing.LineTypeMaterial},
				{Quantity: 1, UnitPrice: -200, LineType: billing.LineTypeService},
			},
		}
		// Ratio falls back to 1; material fully offset by the deduction.
		assert.InDelta(t, 50, EstimateNetIncome(doc), 0.001)
	})

	t.Run("no items keeps the billed amount", func(t *testing.T) {
		doc := billing.Document{Title: "Manual entry", Totals: billing.Totals{TotalInclTax: 990}}
		assert.InDelta(t, 990, EstimateNetIncome(doc), 0.001)
	})
}
