package reporting

// ChartPoint is one slot of a window time series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DocumentRef identifies a document that contributed to a window value.
type DocumentRef struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Total float64 `json:"total"`
}

// WindowStat is the per-window result for one metric: the running total, a
// display-scaling max, the per-slot series, and the contributing documents.
type WindowStat struct {
	Value   float64       `json:"value"`
	Max     float64       `json:"max"`
	Chart   []ChartPoint  `json:"chart"`
	Details []DocumentRef `json:"details"`
}

// MetricReport groups the four windows of one metric.
type MetricReport struct {
	Week     WindowStat `json:"week"`
	Month    WindowStat `json:"month"`
	Year     WindowStat `json:"year"`
	LastYear WindowStat `json:"last_year"`
}

// Report is the full dashboard payload.
type Report struct {
	Revenue        MetricReport `json:"revenue"`
	NetIncome      MetricReport `json:"net_income"`
	QuoteVolume    MetricReport `json:"quote_volume"`
	ConversionRate MetricReport `json:"conversion_rate"`
}

func (m *MetricReport) window(w Window) *WindowStat {
	switch w {
	case WindowWeek:
		return &m.Week
	case WindowMonth:
		return &m.Month
	case WindowYear:
		return &m.Year
	default:
		return &m.LastYear
	}
}
