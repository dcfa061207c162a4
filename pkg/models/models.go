package models

import (
	"strings"
	"time"
	"unicode"
)

// NotFound is the sentinel stored for any field that could not be extracted
const NotFound = "Not Found"

// PlateQuery is a normalized registration number: uppercase, no whitespace.
// Only values produced by NewPlateQuery should reach URL building or extraction.
type PlateQuery string

// NewPlateQuery normalizes raw user input into a PlateQuery
func NewPlateQuery(raw string) PlateQuery {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return PlateQuery(b.String())
}

// String returns the normalized plate
func (q PlateQuery) String() string {
	return string(q)
}

// IsZero reports whether the query is empty after normalization
func (q PlateQuery) IsZero() bool {
	return q == ""
}

// Record maps an output key to its extracted value.
// Every key of the field spec it was built from is present.
type Record map[string]string

// Found returns the number of fields holding a real value
func (r Record) Found() int {
	n := 0
	for _, v := range r {
		if v != NotFound {
			n++
		}
	}
	return n
}

// Result is the outcome of resolving one plate. It is always well formed:
// either Success with Data, or a failure with a human readable Message.
type Result struct {
	Success   bool          `json:"success"`
	VehicleNo string        `json:"vehicle_no"`
	Data      Record        `json:"data,omitempty"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts"`
	Strategy  string        `json:"strategy,omitempty"`
	Cached    bool          `json:"cached,omitempty"`
	Duration  time.Duration `json:"-"`
	RequestID string        `json:"request_id,omitempty"`
}
