package charts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vicanso/go-charts/v2"

	"github.com/aristath/market-confidence/internal/modules/portfolio"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

// ErrNoData is returned when there is nothing to draw
var ErrNoData = errors.New("no data to chart")

// PerformanceSource values a stored portfolio over a period
type PerformanceSource interface {
	Performance(ctx context.Context, id, period string) (*portfolio.Performance, error)
}

// SimulationRunner runs event simulations
type SimulationRunner interface {
	RunEventSimulation(ctx context.Context, req simulation.Request, progress simulation.ProgressFunc) (*simulation.Report, error)
}

// Line is one named series of a chart
type Line struct {
	Name   string
	Points []ChartDataPoint
}

// Service provides chart rendering operations
type Service struct {
	portfolios  PerformanceSource
	simulations SimulationRunner
	log         zerolog.Logger
}

// NewService creates a new charts service
func NewService(portfolios PerformanceSource, simulations SimulationRunner, log zerolog.Logger) *Service {
	return &Service{
		portfolios:  portfolios,
		simulations: simulations,
		log:         log.With().Str("service", "charts").Logger(),
	}
}

// PortfolioPerformance renders the Hold value series of a portfolio over a period
func (s *Service) PortfolioPerformance(ctx context.Context, id, period string) ([]byte, error) {
	perf, err := s.portfolios.Performance(ctx, id, period)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = portfolio.DefaultPerformancePeriod
	}

	points := FromValueSeries(perf.Performance)
	points = Aggregate(points, GroupingFor(len(points)))

	return Render(
		perf.Portfolio.Name,
		fmt.Sprintf("Value over %s", period),
		[]Line{{Name: perf.Portfolio.Name, Points: points}},
	)
}

// EventSimulation runs an event simulation and renders every scenario on one chart
func (s *Service) EventSimulation(ctx context.Context, req simulation.Request) ([]byte, error) {
	report, err := s.simulations.RunEventSimulation(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(report.SimulationResults))
	for _, result := range report.SimulationResults {
		points := FromValueSeries(result.Performance)
		lines = append(lines, Line{
			Name:   result.Scenario,
			Points: Aggregate(points, GroupingFor(len(points))),
		})
	}

	s.log.Debug().
		Str("portfolio", report.Portfolio.ID).
		Str("event", report.Event).
		Int("scenarios", len(lines)).
		Msg("Rendering event simulation chart")

	return Render(
		fmt.Sprintf("%s: %s", report.Portfolio.Name, report.Event),
		fmt.Sprintf("Best: %s", report.Advice.BestScenario),
		lines,
	)
}

// Render draws the lines as a PNG. Every line is plotted against the labels of
// the first one, so they must share a date axis.
func Render(title, subtitle string, lines []Line) ([]byte, error) {
	if len(lines) == 0 || len(lines[0].Points) == 0 {
		return nil, ErrNoData
	}

	labels := make([]string, len(lines[0].Points))
	for i, p := range lines[0].Points {
		labels[i] = p.Time
	}

	names := make([]string, len(lines))
	values := make([][]float64, len(lines))
	yMin, yMax := lines[0].Points[0].Value, lines[0].Points[0].Value
	for i, line := range lines {
		names[i] = line.Name
		values[i] = make([]float64, len(line.Points))
		for j, p := range line.Points {
			values[i][j] = p.Value
			if p.Value < yMin {
				yMin = p.Value
			}
			if p.Value > yMax {
				yMax = p.Value
			}
		}
	}

	padding := (yMax - yMin) * 0.05
	if padding == 0 {
		padding = yMax * 0.05
	}
	yMin -= padding
	yMax += padding

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitNumber(len(labels)),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

func splitNumber(labels int) int {
	if labels > 30 {
		return 6
	}
	split := labels / 3
	if split < 3 {
		split = 3
	}
	return split
}
