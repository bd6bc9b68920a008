package reporting

import (
	"log/slog"
	"time"

	"github.com/tradebill/tradebill/internal/billing"
)

// Aggregate buckets a full document snapshot into the four reporting windows
// relative to ref, producing the four dashboard metrics. It is a pure function
// of its inputs: identical (docs, ref) always yields identical output.
//
// A single bad document never aborts the report: malformed dates are skipped
// with a warning, and an unexpected panic is contained into a well-defined
// all-zero report so the caller always has something to render.
func Aggregate(docs []billing.Document, ref time.Time, logger *slog.Logger) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("aggregation failed, returning empty report", slog.Any("panic", r))
			}
			rep = compute(nil, ref, nil)
		}
	}()
	return compute(docs, ref, logger)
}

type slotCounter struct {
	signed []int
	total  []int
}

func compute(docs []billing.Document, ref time.Time, logger *slog.Logger) Report {
	var rep Report
	for _, w := range Windows {
		labels := w.slotLabels(ref)
		for _, metric := range []*MetricReport{&rep.Revenue, &rep.NetIncome, &rep.QuoteVolume, &rep.ConversionRate} {
			stat := metric.window(w)
			stat.Chart = make([]ChartPoint, len(labels))
			for i, label := range labels {
				stat.Chart[i] = ChartPoint{Label: label}
			}
			stat.Details = []DocumentRef{}
		}
	}

	counters := make(map[Window]*slotCounter, len(Windows))
	for _, w := range Windows {
		n := w.slots(ref)
		counters[w] = &slotCounter{signed: make([]int, n), total: make([]int, n)}
	}

	ix := billing.NewChainIndex(docs)
	for _, doc := range docs {
		if doc.Date.IsZero() {
			// Silent omission in a financial report is trust-sensitive, so the
			// skip must be auditable.
			if logger != nil {
				logger.Warn("skipping document with malformed date", slog.Int64("document_id", doc.ID))
			}
			continue
		}

		countsRevenue := doc.Status == billing.StatusPaid && !ix.IsRevenueDuplicate(doc)
		countsActivity := doc.IsActivity()
		if !countsRevenue && !countsActivity {
			continue
		}

		// A document contributes to every window whose range it falls in.
		for _, w := range Windows {
			if !w.contains(doc.Date, ref) {
				continue
			}
			slot := w.slotIndex(doc.Date)
			if countsRevenue {
				contribute(rep.Revenue.window(w), slot, doc.Totals.TotalInclTax, doc)
				contribute(rep.NetIncome.window(w), slot, EstimateNetIncome(doc), doc)
			}
			if countsActivity {
				contribute(rep.QuoteVolume.window(w), slot, doc.Totals.TotalInclTax, doc)
				counter := counters[w]
				counter.total[slot]++
				if doc.IsSigned() {
					counter.signed[slot]++
				}
				stat := rep.ConversionRate.window(w)
				stat.Details = append(stat.Details, docRef(doc))
			}
		}
	}

	for _, w := range Windows {
		for _, metric := range []*MetricReport{&rep.Revenue, &rep.NetIncome, &rep.QuoteVolume} {
			stat := metric.window(w)
			stat.Max = w.scaleMax(stat.Value)
		}

		counter := counters[w]
		stat := rep.ConversionRate.window(w)
		stat.Max = 100
		var signed, total int
		for i := range counter.total {
			signed += counter.signed[i]
			total += counter.total[i]
			if counter.total[i] > 0 {
				stat.Chart[i].Value = float64(counter.signed[i]) / float64(counter.total[i]) * 100
			}
		}
		if total > 0 {
			stat.Value = float64(signed) / float64(total) * 100
		}
	}

	return rep
}

func contribute(stat *WindowStat, slot int, amount float64, doc billing.Document) {
	stat.Value += amount
	stat.Chart[slot].Value += amount
	stat.Details = append(stat.Details, docRef(doc))
}

func docRef(doc billing.Document) DocumentRef {
	return DocumentRef{ID: doc.ID, Title: doc.Title, Total: doc.Totals.TotalInclTax}
}
