package harness

// Step types recorded in the trace.
const (
	StepQuery  = "query"
	StepAppend = "append"
	StepClose  = "close"
)

// TraceEvent records one executed step and its outcome.
type TraceEvent struct {
	Step      int            `json:"step"`
	Type      string         `json:"type"` // "query", "append" or "close"
	Query     string         `json:"query,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Data      any            `json:"data,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
	RecordIDs []string       `json:"record_ids,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Fingerprint identifies the catalog the schema was built from.
	Fingerprint string `json:"fingerprint"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddQueryTrace records an executed query.
func (r *Result) AddQueryTrace(step int, query string, vars map[string]any, data any, errs []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:      step,
		Type:      StepQuery,
		Query:     query,
		Variables: vars,
		Data:      data,
		Errors:    errs,
	})
}

// AddAppendTrace records an append and either the stored ids or the
// rejection code.
func (r *Result) AddAppendTrace(step int, ids []string, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:      step,
		Type:      StepAppend,
		RecordIDs: ids,
		ErrorCode: code,
	})
}

// AddCloseTrace records closing the store.
func (r *Result) AddCloseTrace(step int) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Type: StepClose})
}
