package calltree

import "fmt"

// Column names of a call-tree export header row.
const (
	ColumnLevel            = "Level"
	ColumnFunctionName     = "Function Name"
	ColumnInclusive        = "Inclusive Samples"
	ColumnExclusive        = "Exclusive Samples"
	ColumnInclusivePercent = "Inclusive Samples %"
	ColumnExclusivePercent = "Exclusive Samples %"
	ColumnModule           = "Module Name"
)

// RootID is the id of the synthetic root entry.
const RootID = 0

// Entry represents a single frame occurrence from a call-tree export.
// Entries are never mutated after they have been read.
type Entry struct {
	ID               int
	Level            int
	Name             string
	InclusiveCount   int64
	ExclusiveCount   int64
	InclusivePercent float64
	ExclusivePercent float64
	Module           string
}

// Root returns the synthetic root entry every graph starts from.
func Root() *Entry {
	return &Entry{
		ID:               RootID,
		Level:            -1,
		Name:             "root",
		InclusiveCount:   1,
		ExclusiveCount:   1,
		InclusivePercent: 100,
		ExclusivePercent: 100,
		Module:           "root",
	}
}

// IsRoot reports whether e is the synthetic root.
func (e *Entry) IsRoot() bool {
	return e.ID == RootID && e.Level < 0
}

// Signature returns the module!function key used to aggregate frames.
func (e *Entry) Signature() string {
	return fmt.Sprintf("%s!%s", e.Module, e.Name)
}

// RowError is returned for a row whose numeric fields cannot be parsed.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: invalid %s %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
