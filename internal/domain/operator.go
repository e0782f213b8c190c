package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operator is an equipment operator in the catalog observers pick from
type Operator struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Site      string    `json:"site"`
	Group     string    `json:"group"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// OperatorRequest carries the editable operator fields
type OperatorRequest struct {
	Name  string `json:"name"`
	Site  string `json:"site"`
	Group string `json:"group"`
}

// Validate trims the fields and checks the name and site
func (r *OperatorRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Group = strings.TrimSpace(r.Group)
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.Site != "" {
		site, ok := NormalizeSite(r.Site)
		if !ok {
			return ErrInvalidSite
		}
		r.Site = site
	}
	return nil
}

// DedupKey identifies an operator for bulk imports
func (o *Operator) DedupKey() string {
	return o.Name + "|" + o.Site + "|" + o.Group
}

// OperatorListParams filters the operator catalog
type OperatorListParams struct {
	Site  string
	Group string
}

// NormalizeSite maps a site case-insensitively to its canonical spelling
func NormalizeSite(site string) (string, bool) {
	trimmed := strings.TrimSpace(site)
	for _, s := range Sites {
		if strings.EqualFold(s, trimmed) {
			return s, true
		}
	}
	return trimmed, false
}
