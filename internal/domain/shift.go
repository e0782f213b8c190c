package domain

import "strings"

// Shift is a canonical work period
type Shift string

const (
	ShiftDay   Shift = "Diurno"
	ShiftNight Shift = "Nocturno"
)

// shiftSynonyms maps every stored shift spelling to its canonical value.
// Older observations were recorded with three shifts or numeric codes.
var shiftSynonyms = map[string]Shift{
	"Mañana":   ShiftDay,
	"Tarde":    ShiftDay,
	"Diurno":   ShiftDay,
	"1":        ShiftDay,
	"2":        ShiftDay,
	"Noche":    ShiftNight,
	"Nocturno": ShiftNight,
	"3":        ShiftNight,
}

// NormalizeShift returns the canonical shift for a stored value.
// ok is false when the value belongs to no bucket.
func NormalizeShift(value string) (Shift, bool) {
	s, ok := shiftSynonyms[strings.TrimSpace(value)]
	return s, ok
}

// ExpandShifts returns the requested values plus every stored synonym of the
// canonical shifts among them, deduplicated, in a stable order.
func ExpandShifts(shifts []string) []string {
	if len(shifts) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(shifts)+4)
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, s := range shifts {
		add(s)
	}

	for _, s := range shifts {
		canonical := Shift(s)
		if canonical != ShiftDay && canonical != ShiftNight {
			continue
		}
		for _, synonym := range shiftSynonymOrder {
			if shiftSynonyms[synonym] == canonical {
				add(synonym)
			}
		}
	}

	return out
}

var shiftSynonymOrder = []string{"Mañana", "Tarde", "1", "2", "Noche", "Nocturno", "3"}
