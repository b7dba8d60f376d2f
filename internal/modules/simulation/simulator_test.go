package simulation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-confidence/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2020, 1, n, 0, 0, 0, 0, time.UTC)
}

func series(symbol string, allocation float64, closes map[int]float64) domain.AllocatedAssetSeries {
	s := domain.AllocatedAssetSeries{Symbol: symbol, Allocation: decimal.NewFromFloat(allocation)}
	for d := 1; d <= 31; d++ {
		if c, ok := closes[d]; ok {
			s.Series = append(s.Series, domain.PricePoint{Date: day(d), Close: decimal.NewFromFloat(c)})
		}
	}
	return s
}

func valueSeries(values ...float64) ValueSeries {
	out := make(ValueSeries, len(values))
	for i, v := range values {
		out[i] = ValuePoint{Date: day(i + 1), Value: decimal.NewFromFloat(v)}
	}
	return out
}

func floats(vs []decimal.Decimal) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.InexactFloat64()
	}
	return out
}

func workedExample() []domain.AllocatedAssetSeries {
	return []domain.AllocatedAssetSeries{
		series("MSCI", 100, map[int]float64{1: 100, 2: 80, 3: 60, 4: 90, 5: 110}),
	}
}

func TestAlignDates(t *testing.T) {
	t.Run("union sorted and deduplicated", func(t *testing.T) {
		in := []domain.AllocatedAssetSeries{
			series("A", 50, map[int]float64{3: 1, 1: 1, 5: 1}),
			series("B", 50, map[int]float64{2: 1, 3: 1, 5: 1}),
		}
		// Out-of-order input within a series
		in[0].Series[0], in[0].Series[2] = in[0].Series[2], in[0].Series[0]

		axis := AlignDates(in)

		assert.Equal(t, []time.Time{day(1), day(2), day(3), day(5)}, axis)
	})

	t.Run("normalizes time of day", func(t *testing.T) {
		in := []domain.AllocatedAssetSeries{{
			Symbol: "A",
			Series: []domain.PricePoint{
				{Date: time.Date(2020, 1, 2, 16, 0, 0, 0, time.UTC)},
				{Date: time.Date(2020, 1, 2, 9, 30, 0, 0, time.UTC)},
			},
		}}
		assert.Equal(t, []time.Time{day(2)}, AlignDates(in))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, AlignDates(nil))
		assert.Empty(t, AlignDates([]domain.AllocatedAssetSeries{{Symbol: "A"}}))
	})
}

func TestPivotDate(t *testing.T) {
	_, err := PivotDate(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	p, err := PivotDate([]time.Time{day(1), day(2), day(3), day(4)})
	require.NoError(t, err)
	assert.Equal(t, day(3), p)

	p, err = PivotDate([]time.Time{day(7)})
	require.NoError(t, err)
	assert.Equal(t, day(7), p)
}

func TestValuator_MissingDateContributesZero(t *testing.T) {
	in := []domain.AllocatedAssetSeries{
		series("A", 60, map[int]float64{1: 100, 2: 110, 3: 120}),
		series("B", 40, map[int]float64{1: 50, 3: 55}),
	}
	axis := AlignDates(in)

	values, err := NewValuator(axis, in, nil).Value(Hold, day(2))
	require.NoError(t, err)

	// Day 2 has no B price: 110*0.6 only
	assert.Equal(t, []float64{80, 66, 94}, floats(values.Values()))
}

func TestValuator_AllocationsNotNormalized(t *testing.T) {
	in := []domain.AllocatedAssetSeries{
		series("A", 30, map[int]float64{1: 100}),
		series("B", 30, map[int]float64{1: 200}),
	}

	values, err := NewValuator(AlignDates(in), in, nil).Value(Hold, day(1))
	require.NoError(t, err)
	assert.True(t, values[0].Value.Equal(decimal.NewFromInt(90)))
}

func TestValuator_InvestmentAmount(t *testing.T) {
	in := []domain.AllocatedAssetSeries{
		series("A", 100, map[int]float64{1: 0, 2: 2}),
	}
	amount := decimal.NewFromInt(1000)

	values, err := NewValuator(AlignDates(in), in, &amount).Value(Hold, day(2))
	require.NoError(t, err)

	// Zero value is left unscaled
	assert.Equal(t, []float64{0, 2000}, floats(values.Values()))
}

func TestValuator_EmptyAxis(t *testing.T) {
	_, err := NewValuator(nil, nil, nil).Value(Hold, day(1))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestValuator_Pure(t *testing.T) {
	in := workedExample()
	v := NewValuator(AlignDates(in), in, nil)

	first, err := v.Value(Withdraw, day(3))
	require.NoError(t, err)
	second, err := v.Value(Withdraw, day(3))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValuator_HoldIgnoresPivot(t *testing.T) {
	in := workedExample()
	v := NewValuator(AlignDates(in), in, nil)

	early, err := v.Value(Hold, day(1))
	require.NoError(t, err)
	late, err := v.Value(Hold, day(5))
	require.NoError(t, err)

	assert.Equal(t, early, late)
}

func TestCalculateMetrics(t *testing.T) {
	ptr := func(n int) *int { return &n }
	ret := func(f float64) *float64 { return &f }

	testCases := []struct {
		name     string
		series   ValueSeries
		expected Metrics
	}{
		{
			name:     "worked hold scenario",
			series:   valueSeries(100, 80, 60, 90, 110),
			expected: Metrics{TotalReturn: ret(10), MaxDrawdown: 40, RecoveryDays: ptr(2)},
		},
		{
			name:     "worked withdraw scenario never recovers",
			series:   valueSeries(100, 80, 48, 72, 88),
			expected: Metrics{TotalReturn: ret(-12), MaxDrawdown: 52, RecoveryDays: nil},
		},
		{
			name:     "single point",
			series:   valueSeries(100),
			expected: Metrics{TotalReturn: ret(0), MaxDrawdown: 0, RecoveryDays: nil},
		},
		{
			name:     "empty",
			series:   nil,
			expected: Metrics{TotalReturn: ret(0), MaxDrawdown: 0, RecoveryDays: nil},
		},
		{
			name:     "trough on last point",
			series:   valueSeries(100, 90, 80),
			expected: Metrics{TotalReturn: ret(-20), MaxDrawdown: 20, RecoveryDays: nil},
		},
		{
			name:     "non-decreasing",
			series:   valueSeries(100, 100, 105, 120),
			expected: Metrics{TotalReturn: ret(20), MaxDrawdown: 0, RecoveryDays: ptr(1)},
		},
		{
			name:     "recovery measured against first value not peak",
			series:   valueSeries(100, 150, 90, 100, 160),
			expected: Metrics{TotalReturn: ret(60), MaxDrawdown: 40, RecoveryDays: ptr(1)},
		},
		{
			name:     "first occurrence of minimum on ties",
			series:   valueSeries(100, 50, 120, 50, 130),
			expected: Metrics{TotalReturn: ret(30), MaxDrawdown: 70 / 1.2, RecoveryDays: ptr(1)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := CalculateMetrics(tc.series)

			require.NotNil(t, m.TotalReturn)
			assert.InDelta(t, *tc.expected.TotalReturn, *m.TotalReturn, 1e-9)
			assert.InDelta(t, tc.expected.MaxDrawdown, m.MaxDrawdown, 1e-9)
			assert.Equal(t, tc.expected.RecoveryDays, m.RecoveryDays)
		})
	}
}

func TestCalculateMetrics_ZeroFirstValueIsUndefined(t *testing.T) {
	m := CalculateMetrics(valueSeries(0, 10, 5))

	assert.Nil(t, m.TotalReturn)
	assert.GreaterOrEqual(t, m.MaxDrawdown, 0.0)
}

func TestCalculateMetrics_RecoveryCountsCalendarDays(t *testing.T) {
	s := ValueSeries{
		{Date: day(3), Value: decimal.NewFromInt(100)},
		{Date: day(6), Value: decimal.NewFromInt(70)}, // Monday trough after a weekend
		{Date: day(7), Value: decimal.NewFromInt(90)},
		{Date: day(13), Value: decimal.NewFromInt(101)},
	}

	m := CalculateMetrics(s)

	require.NotNil(t, m.RecoveryDays)
	assert.Equal(t, 7, *m.RecoveryDays)
}

func TestCalculateMetrics_DrawdownProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(20)
		values := make([]float64, n)
		nonDecreasing := rng.Intn(2) == 0
		prev := 1 + rng.Float64()*100
		for j := range values {
			if nonDecreasing {
				prev += float64(rng.Intn(3))
			} else {
				prev = 1 + rng.Float64()*100
			}
			values[j] = prev
		}

		s := valueSeries(values...)
		m := CalculateMetrics(s)

		assert.GreaterOrEqual(t, m.MaxDrawdown, 0.0)

		isNonDecreasing := true
		for j := 1; j < n; j++ {
			if values[j] < values[j-1] {
				isNonDecreasing = false
			}
		}
		assert.Equal(t, isNonDecreasing, m.MaxDrawdown == 0, "series %v", values)

		if m.RecoveryDays != nil {
			assert.GreaterOrEqual(t, *m.RecoveryDays, 0)
			assertFirstRecovery(t, s, *m.RecoveryDays)
		}
	}
}

// assertFirstRecovery checks that trough+days is the first post-trough point at or above the start
func assertFirstRecovery(t *testing.T, s ValueSeries, days int) {
	t.Helper()

	trough := 0
	for i, p := range s {
		if p.Value.LessThan(s[trough].Value) {
			trough = i
		}
	}
	target := s[trough].Date.AddDate(0, 0, days)
	for i := trough + 1; i < len(s); i++ {
		if s[i].Value.GreaterThanOrEqual(s[0].Value) {
			assert.Equal(t, target, s[i].Date)
			return
		}
	}
	t.Fatalf("no recovery point found for %d days", days)
}

func TestSimulate_WorkedExample(t *testing.T) {
	result, err := Simulate(workedExample(), nil)
	require.NoError(t, err)

	assert.Equal(t, day(3), result.PivotDate)
	require.Len(t, result.Scenarios, 3)

	hold, withdraw, add := result.Scenarios[0], result.Scenarios[1], result.Scenarios[2]
	assert.Equal(t, "No Changes", hold.Scenario)
	assert.Equal(t, "20% Withdrawal", withdraw.Scenario)
	assert.Equal(t, "20% Addition", add.Scenario)

	assert.Equal(t, []float64{100, 80, 60, 90, 110}, floats(hold.Performance.Values()))
	assert.InDelta(t, 10, *hold.TotalReturn, 1e-9)
	assert.InDelta(t, 40, hold.MaxDrawdown, 1e-9)
	require.NotNil(t, hold.RecoveryDays)
	assert.Equal(t, 2, *hold.RecoveryDays)

	assert.Equal(t, []float64{100, 80, 48, 72, 88}, floats(withdraw.Performance.Values()))
	assert.InDelta(t, -12, *withdraw.TotalReturn, 1e-9)
	assert.Nil(t, withdraw.RecoveryDays)

	assert.Equal(t, []float64{100, 80, 72, 108, 132}, floats(add.Performance.Values()))
	assert.InDelta(t, 32, *add.TotalReturn, 1e-9)
	require.NotNil(t, add.RecoveryDays)
	assert.Equal(t, 1, *add.RecoveryDays)

	assert.Equal(t, "20% Addition", result.BestScenario)
}

func TestSimulate_ScenarioRelations(t *testing.T) {
	in := []domain.AllocatedAssetSeries{
		series("A", 40, map[int]float64{2: 10.5, 3: 11.25, 6: 9.75, 7: 12, 8: 12.5, 9: 13}),
		series("B", 35, map[int]float64{2: 100, 3: 98, 4: 97.5, 7: 104, 9: 110}),
		series("C", 50, map[int]float64{3: 20, 4: 21, 6: 22, 8: 19.5}),
	}
	amount := decimal.RequireFromString("2500.50")

	result, err := Simulate(in, &amount)
	require.NoError(t, err)

	hold, withdraw, add := result.Scenarios[0], result.Scenarios[1], result.Scenarios[2]
	require.Len(t, withdraw.Performance, len(hold.Performance))
	require.Len(t, add.Performance, len(hold.Performance))

	eight := decimal.RequireFromString("0.8")
	twelve := decimal.RequireFromString("1.2")
	for i, h := range hold.Performance {
		assert.Equal(t, h.Date, withdraw.Performance[i].Date)
		assert.Equal(t, h.Date, add.Performance[i].Date)

		if h.Date.Before(result.PivotDate) {
			assert.True(t, h.Value.Equal(withdraw.Performance[i].Value))
			assert.True(t, h.Value.Equal(add.Performance[i].Value))
			continue
		}
		assert.True(t, withdraw.Performance[i].Value.Equal(h.Value.Mul(eight)), "withdraw at %s", h.Date)
		assert.True(t, add.Performance[i].Value.Equal(h.Value.Mul(twelve)), "add at %s", h.Date)
	}
}

func TestSimulate_InsufficientData(t *testing.T) {
	_, err := Simulate(nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Simulate([]domain.AllocatedAssetSeries{{Symbol: "A", Allocation: decimal.NewFromInt(100)}}, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSimulate_SingleDate(t *testing.T) {
	in := []domain.AllocatedAssetSeries{series("A", 100, map[int]float64{4: 50})}

	result, err := Simulate(in, nil)
	require.NoError(t, err)

	require.Len(t, result.Scenarios, 3)
	for _, s := range result.Scenarios {
		require.NotNil(t, s.TotalReturn)
		assert.Equal(t, 0.0, *s.TotalReturn)
		assert.Equal(t, 0.0, s.MaxDrawdown)
		assert.Nil(t, s.RecoveryDays)
	}
	assert.Equal(t, "No Changes", result.BestScenario)
}

func TestSimulate_DegenerateSeriesStillReturnsAllScenarios(t *testing.T) {
	in := []domain.AllocatedAssetSeries{series("A", 0, map[int]float64{1: 10, 2: 12, 3: 8})}

	result, err := Simulate(in, nil)
	require.NoError(t, err)

	require.Len(t, result.Scenarios, 3)
	for _, s := range result.Scenarios {
		assert.Nil(t, s.TotalReturn)
	}
	assert.Equal(t, "No Changes", result.BestScenario)
}

func TestSimulate_Deterministic(t *testing.T) {
	in := workedExample()

	first, err := Simulate(in, nil)
	require.NoError(t, err)
	second, err := Simulate(in, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRank(t *testing.T) {
	ret := func(f float64) *float64 { return &f }
	results := []ScenarioResult{
		{Scenario: "No Changes", Metrics: Metrics{TotalReturn: ret(5)}},
		{Scenario: "20% Withdrawal", Metrics: Metrics{TotalReturn: nil}},
		{Scenario: "20% Addition", Metrics: Metrics{TotalReturn: ret(5)}},
	}

	ranked := Rank(results)

	assert.Equal(t, "No Changes", ranked[0].Scenario)
	assert.Equal(t, "20% Addition", ranked[1].Scenario)
	assert.Equal(t, "20% Withdrawal", ranked[2].Scenario)
	// Input untouched
	assert.Equal(t, "20% Withdrawal", results[1].Scenario)
}

func TestResult_Summaries(t *testing.T) {
	result, err := Simulate(workedExample(), nil)
	require.NoError(t, err)

	summaries := result.Summaries()

	require.Len(t, summaries, 3)
	assert.Equal(t, "No Changes", summaries[0].Name)
	assert.InDelta(t, 40, summaries[0].MaxDrawdown, 1e-9)
	assert.Nil(t, summaries[1].RecoveryDays)
}
