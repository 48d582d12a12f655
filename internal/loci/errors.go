package loci

import (
	"errors"
	"sort"
	"strings"
)

// NonFieldErrors is the bucket for errors about a relationship rather than one field
const NonFieldErrors = "__all__"

var (
	// ErrNotFound is returned when a location, floorplan or object location does not exist
	ErrNotFound = errors.New("not found")
	// ErrProtected is returned when deleting a record still referenced by object locations
	ErrProtected = errors.New("record is referenced by object locations")
)

// Errors collects every validation failure of one pass, keyed by field name.
// It is never returned empty: use Err().
type Errors map[string][]string

// Add appends msg to field
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge appends all messages of other
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Has reports whether field has at least one error
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns e as an error, or nil when nothing failed
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Error renders fields in sorted order: "indoor: invalid value; name: ..."
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], ", "))
	}
	return strings.Join(parts, "; ")
}

// AsErrors extracts validation errors from err
func AsErrors(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}
