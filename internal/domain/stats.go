package domain

import "github.com/google/uuid"

// Stats is the dashboard statistics bundle. It is derived entirely from a
// filtered set of observations and is recomputed on every filter change.
type Stats struct {
	Total           int `json:"total"`
	Safe            int `json:"safe"`
	Risk            int `json:"risk"`
	TotalOperators  int `json:"totalOperators"`
	TotalDeviations int `json:"totalDeviations"`

	Percentages Percentages `json:"percentages"`

	OperatorList     []OperatorEntry  `json:"operatorList"`
	DeviationList    []DeviationEntry `json:"deviationList"`
	ObservationsList []Observation    `json:"observationsList"`

	GroupsChart    SeriesChart    `json:"groupsChart"`
	TypesChart     SeriesChart    `json:"typesChart"`
	FindingsChart  FindingsChart  `json:"findingsChart"`
	ObserversChart ObserversChart `json:"observersChart"`
	ItemsChart     ItemsChart     `json:"itemsChart"`
	MonthlyChart   MonthlyChart   `json:"chartData"`
}

// Percentages holds the rounded shares shown on the KPI cards
type Percentages struct {
	Safe     int `json:"safe"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// OperatorEntry is one distinct operator seen in the filtered set
type OperatorEntry struct {
	ID       uuid.UUID `json:"id"`
	Operator string    `json:"operator"`
	Site     string    `json:"site"`
	Group    string    `json:"group"`
	Count    int       `json:"count"`
}

// DeviationEntry is one failed checklist question of one record
type DeviationEntry struct {
	ID       uuid.UUID `json:"id"`
	Date     string    `json:"date"`
	Operator string    `json:"operator"`
	Site     string    `json:"site"`
	Group    string    `json:"group"`
	Item     string    `json:"item"`
	Observer string    `json:"observer"`
	Comments string    `json:"comments"`
}

// SeriesChart is a labelled operators vs deviations breakdown
type SeriesChart struct {
	Labels     []string `json:"labels"`
	Operators  []int    `json:"operators"`
	Deviations []int    `json:"deviations"`
}

// FindingsChart counts positive and negative answers
type FindingsChart struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// ObserversChart is the per-supervisor breakdown
type ObserversChart struct {
	Labels          []string    `json:"labels"`
	Observations    []int       `json:"observations"`
	UniqueOperators []int       `json:"uniqueOperators"`
	Deviations      []int       `json:"deviations"`
	Shifts          ShiftSeries `json:"shifts"`
}

// ShiftSeries holds per-supervisor counts bucketed by canonical shift.
// Afternoon is always empty since afternoon shifts fold into Diurno.
type ShiftSeries struct {
	Morning   []int `json:"morning"`
	Afternoon []int `json:"afternoon"`
	Night     []int `json:"night"`
}

// ItemsChart is the top failing questions broken down by group
type ItemsChart struct {
	Labels []string    `json:"labels"`
	Groups GroupSeries `json:"groups"`
}

// GroupSeries holds one failure count per item for each crew group
type GroupSeries struct {
	G1 []int `json:"g1"`
	G2 []int `json:"g2"`
	G3 []int `json:"g3"`
}

// MonthlyChart counts safe and risk observations per month
type MonthlyChart struct {
	Labels   []string `json:"labels"`
	SafeData []int    `json:"safeData"`
	RiskData []int    `json:"riskData"`
}
