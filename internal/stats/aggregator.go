// Package stats reduces a filtered set of observations into the dashboard
// statistics bundle.
//
// Everything here is a pure function of its input: no I/O, no errors. Missing
// checklists are treated as empty and unknown answers are skipped.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// Labeler resolves a checklist key to a human readable question label
type Labeler interface {
	Label(key string) string
}

// MaxItems is the number of failing questions kept in the items chart
const MaxItems = 7

// MaxItemLabel is the display length of item chart labels
const MaxItemLabel = 30

// Group buckets used by the items chart
const (
	Group1 = "Grupo 1"
	Group2 = "Grupo 2"
	Group3 = "Grupo 3"
)

type observerTally struct {
	count      int
	operators  map[string]struct{}
	deviations int
	day        int
	night      int
}

type typeTally struct {
	operators  map[string]struct{}
	deviations int
}

type itemTally struct {
	label string
	g1    int
	g2    int
	g3    int
}

func (t *itemTally) total() int {
	return t.g1 + t.g2 + t.g3
}

type monthTally struct {
	safe int
	risk int
}

// orderedTally keeps insertion order for map-backed tallies
type orderedTally[T any] struct {
	keys  []string
	items map[string]*T
}

func newOrderedTally[T any]() *orderedTally[T] {
	return &orderedTally[T]{items: make(map[string]*T)}
}

func (o *orderedTally[T]) get(key string, init func() *T) *T {
	if v, ok := o.items[key]; ok {
		return v
	}
	v := init()
	o.items[key] = v
	o.keys = append(o.keys, key)
	return v
}

// Aggregate builds the statistics bundle from the filtered observations in a
// single pass. The groups chart is left empty; it comes from a separate fetch
// that ignores the group filter (see GroupStats).
func Aggregate(observations []*domain.Observation, questions Labeler) *domain.Stats {
	var (
		safe, risk         int
		positive, negative int
	)

	operators := newOrderedTally[domain.OperatorEntry]()
	observers := newOrderedTally[observerTally]()
	types := newOrderedTally[typeTally]()
	items := newOrderedTally[itemTally]()
	months := newOrderedTally[monthTally]()
	deviations := make([]domain.DeviationEntry, 0)
	list := make([]domain.Observation, 0, len(observations))

	for _, obs := range observations {
		if obs == nil {
			continue
		}
		list = append(list, *obs)

		observerName := obs.SupervisorName
		if observerName == "" {
			observerName = domain.UnknownLabel
		}
		observer := observers.get(observerName, func() *observerTally {
			return &observerTally{operators: make(map[string]struct{})}
		})
		observer.count++
		if shift, ok := domain.NormalizeShift(obs.Shift); ok {
			switch shift {
			case domain.ShiftDay:
				observer.day++
			case domain.ShiftNight:
				observer.night++
			}
		}

		obsType := obs.ObservationType
		if obsType == "" {
			obsType = domain.UnknownLabel
		}
		typeStats := types.get(obsType, func() *typeTally {
			return &typeTally{operators: make(map[string]struct{})}
		})

		obsHasRisk := false

		for i := range obs.Records {
			rec := &obs.Records[i]

			if rec.OperatorName != "" {
				entry := operators.get(rec.OperatorName, func() *domain.OperatorEntry {
					return &domain.OperatorEntry{
						ID:       rec.ID,
						Operator: rec.OperatorName,
						Site:     obs.Site,
						Group:    obs.Group,
					}
				})
				entry.Count++
				typeStats.operators[rec.OperatorName] = struct{}{}
				observer.operators[rec.OperatorName] = struct{}{}
			}

			recordDeviations := 0
			for _, key := range sortedKeys(rec.Checklist) {
				switch answerOf(rec.Checklist[key]) {
				case answerPositive:
					positive++
				case answerNegative:
					negative++
					recordDeviations++
					observer.deviations++

					label := questions.Label(key)
					deviations = append(deviations, domain.DeviationEntry{
						ID:       rec.ID,
						Date:     obs.Date,
						Operator: rec.OperatorName,
						Site:     obs.Site,
						Group:    obs.Group,
						Item:     label,
						Observer: obs.SupervisorName,
						Comments: rec.Comments,
					})

					item := items.get(label, func() *itemTally { return &itemTally{label: label} })
					switch GroupBucket(obs.Group) {
					case Group1:
						item.g1++
					case Group2:
						item.g2++
					case Group3:
						item.g3++
					}
				}
			}

			if recordDeviations > 0 {
				obsHasRisk = true
				typeStats.deviations += recordDeviations
			}
		}

		if obsHasRisk {
			risk++
		} else {
			safe++
		}

		if !obs.CreatedAt.IsZero() {
			month := months.get(obs.CreatedAt.Format("2006-01"), func() *monthTally { return &monthTally{} })
			if obsHasRisk {
				month.risk++
			} else {
				month.safe++
			}
		}
	}

	total := len(list)

	out := &domain.Stats{
		Total:           total,
		Safe:            safe,
		Risk:            risk,
		TotalDeviations: negative,
		Percentages: domain.Percentages{
			Safe:     Pct(safe, total),
			Positive: Pct(positive, positive+negative),
			Negative: Pct(negative, positive+negative),
		},
		OperatorList:     make([]domain.OperatorEntry, 0, len(operators.keys)),
		DeviationList:    deviations,
		ObservationsList: list,
		GroupsChart:      EmptySeries(),
		FindingsChart:    domain.FindingsChart{Positive: positive, Negative: negative},
	}

	for _, name := range operators.keys {
		entry := *operators.items[name]
		out.OperatorList = append(out.OperatorList, entry)
		out.TotalOperators += entry.Count
	}

	out.TypesChart = EmptySeries()
	for _, name := range types.keys {
		t := types.items[name]
		out.TypesChart.Labels = append(out.TypesChart.Labels, name)
		out.TypesChart.Operators = append(out.TypesChart.Operators, len(t.operators))
		out.TypesChart.Deviations = append(out.TypesChart.Deviations, t.deviations)
	}

	out.ObserversChart = buildObservers(observers)
	out.ItemsChart = buildItems(items)

	out.MonthlyChart = domain.MonthlyChart{
		Labels:   make([]string, 0, len(months.keys)),
		SafeData: make([]int, 0, len(months.keys)),
		RiskData: make([]int, 0, len(months.keys)),
	}
	for _, m := range months.keys {
		out.MonthlyChart.Labels = append(out.MonthlyChart.Labels, m)
		out.MonthlyChart.SafeData = append(out.MonthlyChart.SafeData, months.items[m].safe)
		out.MonthlyChart.RiskData = append(out.MonthlyChart.RiskData, months.items[m].risk)
	}

	return out
}

func buildObservers(observers *orderedTally[observerTally]) domain.ObserversChart {
	n := len(observers.keys)
	chart := domain.ObserversChart{
		Labels:          make([]string, 0, n),
		Observations:    make([]int, 0, n),
		UniqueOperators: make([]int, 0, n),
		Deviations:      make([]int, 0, n),
		Shifts: domain.ShiftSeries{
			Morning:   make([]int, 0, n),
			Afternoon: []int{},
			Night:     make([]int, 0, n),
		},
	}

	for _, name := range observers.keys {
		o := observers.items[name]
		chart.Labels = append(chart.Labels, name)
		chart.Observations = append(chart.Observations, o.count)
		chart.UniqueOperators = append(chart.UniqueOperators, len(o.operators))
		chart.Deviations = append(chart.Deviations, o.deviations)
		chart.Shifts.Morning = append(chart.Shifts.Morning, o.day)
		chart.Shifts.Night = append(chart.Shifts.Night, o.night)
	}

	return chart
}

func buildItems(items *orderedTally[itemTally]) domain.ItemsChart {
	ranked := make([]*itemTally, 0, len(items.keys))
	for _, k := range items.keys {
		ranked = append(ranked, items.items[k])
	}

	// Stable so ties keep first-seen order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].total() > ranked[j].total()
	})
	if len(ranked) > MaxItems {
		ranked = ranked[:MaxItems]
	}

	chart := domain.ItemsChart{
		Labels: make([]string, 0, len(ranked)),
		Groups: domain.GroupSeries{
			G1: make([]int, 0, len(ranked)),
			G2: make([]int, 0, len(ranked)),
			G3: make([]int, 0, len(ranked)),
		},
	}
	for _, it := range ranked {
		chart.Labels = append(chart.Labels, TruncateLabel(it.label, MaxItemLabel))
		chart.Groups.G1 = append(chart.Groups.G1, it.g1)
		chart.Groups.G2 = append(chart.Groups.G2, it.g2)
		chart.Groups.G3 = append(chart.Groups.G3, it.g3)
	}

	return chart
}

// GroupBucket maps a group value to its items chart bucket by substring
// match. Returns "" when the group contains none of 1, 2 or 3.
func GroupBucket(group string) string {
	switch {
	case strings.Contains(group, "1"):
		return Group1
	case strings.Contains(group, "2"):
		return Group2
	case strings.Contains(group, "3"):
		return Group3
	default:
		return ""
	}
}

// TruncateLabel cuts a label to max runes, appending an ellipsis when cut
func TruncateLabel(label string, max int) string {
	runes := []rune(label)
	if len(runes) <= max {
		return label
	}
	return string(runes[:max]) + "..."
}

// Pct returns round(part/total*100), or 0 when total is 0
func Pct(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

// EmptySeries returns a series chart with non-nil empty slices
func EmptySeries() domain.SeriesChart {
	return domain.SeriesChart{
		Labels:     []string{},
		Operators:  []int{},
		Deviations: []int{},
	}
}

type answerKind int

const (
	answerOther answerKind = iota
	answerPositive
	answerNegative
)

func answerOf(value string) answerKind {
	switch {
	case strings.EqualFold(value, "si"):
		return answerPositive
	case strings.EqualFold(value, "no"):
		return answerNegative
	default:
		return answerOther
	}
}

// sortedKeys gives checklist iteration a deterministic encounter order
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
