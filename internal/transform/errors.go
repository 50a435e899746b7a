package transform

import "fmt"

// FormatError means the input file is unreadable or has no recognizable
// header. It is fatal to the whole transform.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// DataError means one row is unusable (missing group key or SKU,
// duplicate SKU). The row is skipped and counted, never fatal.
type DataError struct {
	Row     int
	Column  string
	Message string
}

func (e *DataError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}
