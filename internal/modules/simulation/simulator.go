package simulation

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/market-confidence/internal/domain"
)

// ScenarioResult is one evaluated scenario
type ScenarioResult struct {
	Scenario    string      `json:"scenario"`
	Performance ValueSeries `json:"performance"`
	Metrics
}

// Result is the three-way scenario comparison for an event window
type Result struct {
	PivotDate    time.Time
	Scenarios    []ScenarioResult // Always Hold, Withdraw, Add
	BestScenario string
}

// MarshalJSON renders the pivot date as YYYY-MM-DD
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PivotDate    string           `json:"pivot_date"`
		Scenarios    []ScenarioResult `json:"scenarios"`
		BestScenario string           `json:"best_scenario"`
	}{domain.FormatDate(r.PivotDate), r.Scenarios, r.BestScenario})
}

// Summaries returns the per-scenario digest used for narrative generation
func (r *Result) Summaries() []domain.ScenarioSummary {
	out := make([]domain.ScenarioSummary, len(r.Scenarios))
	for i, s := range r.Scenarios {
		out[i] = domain.ScenarioSummary{
			Name:         s.Scenario,
			TotalReturn:  s.TotalReturn,
			MaxDrawdown:  s.MaxDrawdown,
			RecoveryDays: s.RecoveryDays,
		}
	}
	return out
}

// Simulate runs every scenario over the aligned axis of the given series.
// The pivot date is shared by all scenarios. Inputs are treated as read-only,
// so concurrent calls are safe.
func Simulate(series []domain.AllocatedAssetSeries, investmentAmount *decimal.Decimal) (*Result, error) {
	axis := AlignDates(series)
	pivot, err := PivotDate(axis)
	if err != nil {
		return nil, err
	}

	valuator := NewValuator(axis, series, investmentAmount)
	scenarios := Scenarios()
	results := make([]ScenarioResult, len(scenarios))
	errs := make([]error, len(scenarios))

	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(i int, sc Scenario) {
			defer wg.Done()
			values, err := valuator.Value(sc, pivot)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = ScenarioResult{
				Scenario:    sc.Name,
				Performance: values,
				Metrics:     CalculateMetrics(values),
			}
		}(i, sc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		PivotDate:    pivot,
		Scenarios:    results,
		BestScenario: Rank(results)[0].Scenario,
	}, nil
}

// Rank orders scenarios by total return, highest first.
// Undefined returns rank last; ties keep the input order.
func Rank(results []ScenarioResult) []ScenarioResult {
	ranked := make([]ScenarioResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].TotalReturn, ranked[j].TotalReturn
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return ranked
}
