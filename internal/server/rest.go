package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aleics/gql-dyn/internal/ingest"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/store"
)

// KindResponse describes one configured kind.
type KindResponse struct {
	Kind   string            `json:"kind" example:"Cat"`
	Fields map[string]string `json:"fields" example:"{\"fur\":\"String\"}"`
}

// KindsResponse lists the kinds of the active schema.
type KindsResponse struct {
	Interface   string         `json:"interface" example:"Animal"`
	Fingerprint string         `json:"fingerprint"`
	Kinds       []KindResponse `json:"kinds"`
}

// RecordResponse is the REST form of a stored record.
type RecordResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name" example:"Cat 0"`
	Kind   string         `json:"kind" example:"Cat"`
	Fields map[string]any `json:"fields" jsonschema:"type=object,additionalProperties=true"`
}

// RecordInput is one record in an append request. An empty id is assigned.
type RecordInput struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name" minLength:"1"`
	Kind   string         `json:"kind" minLength:"1"`
	Fields map[string]any `json:"fields,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

func recordResponse(rec ir.Record) RecordResponse {
	return RecordResponse{
		ID:     rec.ID,
		Name:   rec.Name,
		Kind:   string(rec.Kind),
		Fields: ir.NativeFields(rec.Fields),
	}
}

func registerHealth(api huma.API, st *store.RecordStore) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		status := "ok"
		if _, err := st.Snapshot(); err != nil {
			status = "store_unavailable"
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": status}}, nil
	})
}

func registerKinds(api huma.API, source SchemaSource) {
	huma.Register(api, huma.Operation{
		OperationID: "list-kinds",
		Method:      http.MethodGet,
		Path:        "/kinds",
		Summary:     "List configured kinds",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body KindsResponse `json:"body"`
	}, error) {
		sch, err := source.Schema(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		sc := sch.Context()
		resp := KindsResponse{
			Interface:   sch.InterfaceName(),
			Fingerprint: sc.Fingerprint(),
			Kinds:       []KindResponse{},
		}
		for _, kind := range sc.Kinds() {
			ks, _ := sc.Lookup(kind)
			fields := make(map[string]string, len(ks.Fields))
			for name, ft := range ks.Fields {
				fields[name] = string(ft)
			}
			resp.Kinds = append(resp.Kinds, KindResponse{Kind: string(kind), Fields: fields})
		}
		return &struct {
			Body KindsResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerListRecords(api huma.API, st *store.RecordStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/records",
		Summary:     "List stored records in insertion order",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Kind  string `query:"kind" doc:"Only return records of this kind"`
		Limit int    `query:"limit" minimum:"0" doc:"Maximum number of records, 0 for all"`
	}) (*struct {
		Body []RecordResponse `json:"body"`
	}, error) {
		records, err := st.Snapshot()
		if err != nil {
			return nil, handleError(err)
		}
		items := []RecordResponse{}
		for _, rec := range records {
			if input.Kind != "" && string(rec.Kind) != input.Kind {
				continue
			}
			items = append(items, recordResponse(rec))
			if input.Limit > 0 && len(items) == input.Limit {
				break
			}
		}
		return &struct {
			Body []RecordResponse `json:"body"`
		}{Body: items}, nil
	})
}

func registerAppendRecords(api huma.API, svc *ingest.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "append-records",
		Method:        http.MethodPost,
		Path:          "/records",
		Summary:       "Validate and append records",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Records []RecordInput `json:"records" minItems:"1"`
		}
	}) (*struct {
		Body []RecordResponse `json:"body"`
	}, error) {
		batch := make([]ir.Record, 0, len(input.Body.Records))
		for i, in := range input.Body.Records {
			fields, err := ir.FieldsOf(in.Fields)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"index": i})
			}
			batch = append(batch, ir.Record{ID: in.ID, Name: in.Name, Kind: ir.KindID(in.Kind), Fields: fields})
		}

		stored, err := svc.Append(ctx, batch)
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]RecordResponse, 0, len(stored))
		for _, rec := range stored {
			items = append(items, recordResponse(rec))
		}
		return &struct {
			Body []RecordResponse `json:"body"`
		}{Body: items}, nil
	})
}
