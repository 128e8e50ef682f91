package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/events"
	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/idgen"
	"github.com/aleics/gql-dyn/internal/ingest"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
	"github.com/aleics/gql-dyn/internal/testutil"
)

// Harness executes one scenario against a fresh schema and store.
type Harness struct {
	schema *schema.Schema
	store  *store.RecordStore
	ingest *ingest.Service
	events *events.Recorder
	ids    *testutil.SequentialIDs
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run builds its own schema and store, so scenarios are isolated.
// An error is returned when the scenario cannot be set up (bad catalog,
// invalid seed records); expectation failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg, err := loadCatalog(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var opts []schema.Option
	if scenario.Interface != "" {
		opts = append(opts, schema.WithInterfaceName(scenario.Interface))
	}
	if scenario.ListField != "" {
		opts = append(opts, schema.WithListField(scenario.ListField))
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, schema.WithLogger(logger))

	s, err := schema.NewGenerator(opts...).Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	st := store.New()
	defer st.Close()

	h := &Harness{
		schema: s,
		store:  st,
		events: &events.Recorder{},
		ids:    testutil.NewSequentialIDs(idgen.DefaultPrefix),
		logger: logger,
	}
	h.ingest = ingest.New(compiler.StaticProvider{Config: cfg}, st,
		ingest.WithIDs(h.ids),
		ingest.WithPublisher(h.events),
		ingest.WithLogger(logger),
	)

	if err := h.seed(cfg, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	result := NewResult()
	result.Fingerprint = s.Context().Fingerprint()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{
		Schema: s,
		Store:  st,
		Events: h.events,
	}) {
		result.AddError(msg)
	}
	return result, nil
}

func loadCatalog(ctx context.Context, scenario *Scenario) (ir.Configuration, error) {
	switch {
	case scenario.Catalog != "":
		return compiler.FileProvider{Path: scenario.Catalog}.Provide(ctx)
	case scenario.Kinds != nil:
		return compiler.CompileDocument(compiler.Document{Kinds: scenario.Kinds})
	default:
		return fixtures.DefaultCatalog(), nil
	}
}

// seed stores fixtures, then the scenario's records, without publishing.
func (h *Harness) seed(cfg ir.Configuration, scenario *Scenario) error {
	if scenario.Fixtures > 0 {
		recs, err := fixtures.Generate(cfg, scenario.Fixtures, h.ids)
		if err != nil {
			return err
		}
		if err := h.store.Append(recs...); err != nil {
			return err
		}
	}
	if len(scenario.Records) == 0 {
		return nil
	}
	recs, err := h.toRecords(scenario.Records, true)
	if err != nil {
		return err
	}
	if err := ir.ValidateRecords(cfg, recs); err != nil {
		return err
	}
	return h.store.Append(recs...)
}

// toRecords converts scenario records. With assignIDs, missing ids are
// drawn from the harness sequence; otherwise ingestion assigns them.
func (h *Harness) toRecords(in []RecordSpec, assignIDs bool) ([]ir.Record, error) {
	recs := make([]ir.Record, 0, len(in))
	for i, rs := range in {
		fields, err := ir.FieldsOf(rs.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec := ir.Record{ID: rs.ID, Name: rs.Name, Kind: ir.KindID(rs.Kind), Fields: fields}
		if rec.ID == "" && assignIDs {
			if rec.ID, err = h.ids.Generate(); err != nil {
				return nil, err
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	switch step.Type() {
	case StepClose:
		if err := h.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
		result.AddCloseTrace(i)
		h.logger.Info("store closed", "step", i)

	case StepAppend:
		recs, err := h.toRecords(step.Append, false)
		if err != nil {
			return err
		}
		stored, appendErr := h.ingest.Append(ctx, recs)
		code := rejectionCode(appendErr)
		ids := make([]string, 0, len(stored))
		for _, rec := range stored {
			ids = append(ids, rec.ID)
		}
		result.AddAppendTrace(i, ids, code)

		want := ""
		if step.Expect != nil {
			want = step.Expect.Error
		}
		if code != want {
			result.AddError(fmt.Sprintf("step %d (append): expected error %q, got %q (%v)", i, want, code, appendErr))
		}

	case StepQuery:
		res := h.schema.Execute(schema.WithRecords(ctx, h.store), schema.Request{
			Query:     step.Query,
			Variables: step.Variables,
		})
		data, err := normalize(res.Data)
		if err != nil {
			return fmt.Errorf("normalize result: %w", err)
		}
		errs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			errs = append(errs, e.Message)
		}
		result.AddQueryTrace(i, step.Query, step.Variables, data, errs)

		if step.Expect != nil {
			for _, msg := range checkQuery(i, step.Expect, data, errs) {
				result.AddError(msg)
			}
		}
	}
	return nil
}

// checkQuery compares a query outcome with its expectation.
func checkQuery(i int, expect *Expect, data any, errs []string) []string {
	var failures []string
	if expect.Data != nil {
		want, err := canonical(expect.Data)
		if err != nil {
			return []string{fmt.Sprintf("step %d (query): bad expected data: %v", i, err)}
		}
		got, err := canonical(data)
		if err != nil {
			return []string{fmt.Sprintf("step %d (query): result data: %v", i, err)}
		}
		if want != got {
			failures = append(failures, fmt.Sprintf("step %d (query): data mismatch\n  Expected: %s\n  Actual: %s", i, want, got))
		}
	}

	if len(errs) != len(expect.Errors) {
		failures = append(failures, fmt.Sprintf("step %d (query): expected %d errors, got %d: %q", i, len(expect.Errors), len(errs), errs))
		return failures
	}
	for j, sub := range expect.Errors {
		if !strings.Contains(errs[j], sub) {
			failures = append(failures, fmt.Sprintf("step %d (query): error %d %q does not contain %q", i, j, errs[j], sub))
		}
	}
	return failures
}

// rejectionCode names why an append was rejected; "" when it was not.
func rejectionCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ir.ValidationError
	switch {
	case errors.As(err, &ve):
		return string(ve.Code)
	case errors.Is(err, store.ErrDuplicateID):
		return string(ir.ValidationDuplicateID)
	case errors.Is(err, store.ErrClosed):
		return string(schema.ErrCodeStoreUnavailable)
	default:
		return "ERROR"
	}
}

// normalize turns a value into plain JSON types (map[string]any, []any,
// float64, string, bool, nil).
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonical renders v as canonical JSON text.
func canonical(v any) (string, error) {
	n, err := normalize(v)
	if err != nil {
		return "", err
	}
	data, err := ir.MarshalCanonical(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
