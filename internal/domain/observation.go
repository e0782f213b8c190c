package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObservationStatus represents the lifecycle of an observation session
type ObservationStatus string

const (
	ObservationStatusInProgress ObservationStatus = "in_progress"
	ObservationStatusCompleted  ObservationStatus = "completed"
)

// Known sites
const (
	SiteElDescanso = "El Descanso"
	SitePribbenow  = "Pribbenow"
)

// Sites lists the sites observations can be recorded at
var Sites = []string{SiteElDescanso, SitePribbenow}

// Groups lists the crew groups
var Groups = []string{"1", "2", "3"}

// Observation types (checklist categories)
const (
	TypeRoads    = "Vías"
	TypeDumps    = "Botaderos"
	TypeLoading  = "Cargue"
	TypeBays     = "Bahías"
	TypeIsland   = "Isla"
	UnknownLabel = "Desconocido"
)

// Checklist answers
const (
	AnswerYes = "Si"
	AnswerNo  = "No"
	AnswerNA  = "N/A"
)

// Observation is one supervised session (date, shift, site, group, category)
type Observation struct {
	ID              uuid.UUID           `json:"id"`
	SupervisorID    uuid.UUID           `json:"supervisor_id"`
	SupervisorName  string              `json:"supervisor_name,omitempty"`
	Date            string              `json:"date"`
	Shift           string              `json:"shift"`
	Site            string              `json:"site"`
	Group           string              `json:"group"`
	ObservationType string              `json:"observation_type"`
	Status          ObservationStatus   `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	RecordCount     int                 `json:"record_count"`
	Records         []ObservationRecord `json:"records,omitempty"`
}

// ObservationRecord is one operator's checklist answers within an observation
type ObservationRecord struct {
	ID            uuid.UUID         `json:"id"`
	ObservationID uuid.UUID         `json:"observation_id"`
	OperatorName  string            `json:"operator_name"`
	Checklist     map[string]string `json:"checklist"`
	Comments      string            `json:"comments"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CreateObservationRequest carries the session header fields
type CreateObservationRequest struct {
	Date            string `json:"date"`
	Shift           string `json:"shift"`
	Site            string `json:"site"`
	Group           string `json:"group"`
	ObservationType string `json:"observation_type"`
}

// Validate checks that every header field is filled in
func (r *CreateObservationRequest) Validate() error {
	if strings.TrimSpace(r.Site) == "" ||
		strings.TrimSpace(r.Shift) == "" ||
		strings.TrimSpace(r.Group) == "" ||
		strings.TrimSpace(r.ObservationType) == "" {
		return ErrIncompleteHeader
	}
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// ToObservation builds a new in-progress observation for the supervisor
func (r *CreateObservationRequest) ToObservation(supervisorID uuid.UUID, now time.Time) *Observation {
	date := r.Date
	if date == "" {
		date = now.Format(DateLayout)
	}

	return &Observation{
		ID:              uuid.New(),
		SupervisorID:    supervisorID,
		Date:            date,
		Shift:           strings.TrimSpace(r.Shift),
		Site:            strings.TrimSpace(r.Site),
		Group:           strings.TrimSpace(r.Group),
		ObservationType: strings.TrimSpace(r.ObservationType),
		Status:          ObservationStatusInProgress,
		CreatedAt:       now,
	}
}

// RecordRequest carries one operator's checklist
type RecordRequest struct {
	OperatorName string            `json:"operator_name"`
	Checklist    map[string]string `json:"checklist"`
	Comments     string            `json:"comments"`
}

// Validate checks the operator name and that every answer is Si, No or N/A.
// Answers are rewritten to their canonical spelling.
func (r *RecordRequest) Validate() error {
	if strings.TrimSpace(r.OperatorName) == "" {
		return ErrOperatorRequired
	}
	r.OperatorName = strings.TrimSpace(r.OperatorName)
	if r.Checklist == nil {
		r.Checklist = map[string]string{}
	}
	for key, answer := range r.Checklist {
		canonical, ok := NormalizeAnswer(answer)
		if !ok {
			return ErrInvalidAnswer
		}
		r.Checklist[key] = canonical
	}
	return nil
}

// NormalizeAnswer maps an answer case-insensitively to its canonical form
func NormalizeAnswer(answer string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "si":
		return AnswerYes, true
	case "no":
		return AnswerNo, true
	case "n/a":
		return AnswerNA, true
	default:
		return "", false
	}
}

// ListParams contains parameters for listing recent observations
type ListParams struct {
	Filter StatsFilter
	Limit  int

	// SupervisorID restricts the list to one supervisor when set
	SupervisorID uuid.UUID
}

// FilterOptions lists the distinct values present in stored observations
type FilterOptions struct {
	Shifts      []string `json:"shifts"`
	Types       []string `json:"types"`
	Groups      []string `json:"groups"`
	Supervisors []string `json:"supervisors"`
	Sites       []string `json:"sites"`
}
