package handlers

import (
	"net/url"
	"strings"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// ParseStatsFilter reads the dashboard filter from query parameters.
// Multi-valued filters accept repeated parameters, comma separated values
// or both.
func ParseStatsFilter(q url.Values) domain.StatsFilter {
	return domain.StatsFilter{
		StartDate:  strings.TrimSpace(q.Get("start_date")),
		EndDate:    strings.TrimSpace(q.Get("end_date")),
		Shift:      multiValue(q, "shift"),
		Site:       multiValue(q, "site"),
		Group:      multiValue(q, "group"),
		Type:       multiValue(q, "type"),
		Supervisor: multiValue(q, "supervisor"),
	}
}

func multiValue(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
