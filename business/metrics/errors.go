package metrics

import "fmt"

// SchemaError marks a batch level ingestion failure: a required field mapping could not be
// resolved or the input held nothing to compute from. It aborts the whole batch.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema error on field %s: %s", e.Field, e.Reason)
}

// InsufficientDataError marks a derived metric that needs more history than the caller
// supplied, such as the two quarter compliance check.
type InsufficientDataError struct {
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: needed %d quarters, got %d", e.Needed, e.Got)
}

// Warning records a single input record that was excluded without failing the batch
type Warning struct {
	Record  string `json:"record"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Record, w.Message)
}
