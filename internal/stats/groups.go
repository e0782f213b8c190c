package stats

import (
	"sort"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// UnassignedGroup labels observations stored without a group
const UnassignedGroup = "N/A"

// GroupStats builds the groups comparison chart. Callers pass observations
// fetched without the group filter so every group stays comparable.
// Operators are counted per record, not deduplicated. Labels are sorted.
func GroupStats(observations []*domain.Observation) domain.SeriesChart {
	type tally struct {
		operators  int
		deviations int
	}

	groups := make(map[string]*tally)
	for _, obs := range observations {
		if obs == nil {
			continue
		}

		key := obs.Group
		if key == "" {
			key = UnassignedGroup
		}
		g, ok := groups[key]
		if !ok {
			g = &tally{}
			groups[key] = g
		}

		for _, rec := range obs.Records {
			if rec.OperatorName != "" {
				g.operators++
			}
			for _, answer := range rec.Checklist {
				if answerOf(answer) == answerNegative {
					g.deviations++
				}
			}
		}
	}

	chart := EmptySeries()
	for label := range groups {
		chart.Labels = append(chart.Labels, label)
	}
	sort.Strings(chart.Labels)
	for _, label := range chart.Labels {
		chart.Operators = append(chart.Operators, groups[label].operators)
		chart.Deviations = append(chart.Deviations, groups[label].deviations)
	}

	return chart
}
