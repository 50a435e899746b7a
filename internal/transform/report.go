package transform

// Counter names reported by the pipeline.
const (
	CounterRows             = "rows"
	CounterProducts         = "products"
	CounterSkippedRows      = "skipped_rows"
	CounterDuplicateSku     = "duplicate_sku"
	CounterUnmappedCategory = "unmapped_category"
	CounterUnnormalizedSize = "unnormalized_size"
)

// RowError records one skipped row for the run report.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report accumulates counters and row-level errors across one run.
// Row and mapping problems are absorbed here rather than failing the job.
type Report struct {
	Counters  map[string]int64
	RowErrors []RowError
}

func NewReport() *Report {
	return &Report{Counters: make(map[string]int64)}
}

func (r *Report) Inc(name string, delta int64) {
	r.Counters[name] += delta
}

func (r *Report) AddRowError(row int, column, code, message string) {
	r.RowErrors = append(r.RowErrors, RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	})
}
