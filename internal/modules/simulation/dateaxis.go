// Package simulation estimates how a portfolio would have behaved during a market event
// under alternative investor behaviors.
package simulation

import (
	"sort"
	"time"

	"github.com/aristath/market-confidence/internal/domain"
)

// AlignDates merges the dates of every asset series into one ascending, deduplicated axis.
// Gaps are not filled; an asset missing a date simply contributes nothing on that date.
func AlignDates(series []domain.AllocatedAssetSeries) []time.Time {
	seen := make(map[int64]struct{})
	var axis []time.Time

	for _, s := range series {
		for _, p := range s.Series {
			d := domain.NormalizeDate(p.Date)
			key := d.Unix()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			axis = append(axis, d)
		}
	}

	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// PivotDate returns the axis element at index floor(len/2)
func PivotDate(axis []time.Time) (time.Time, error) {
	if len(axis) == 0 {
		return time.Time{}, ErrInsufficientData
	}
	return axis[len(axis)/2], nil
}
