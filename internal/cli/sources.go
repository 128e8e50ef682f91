package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/config"
	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
	"github.com/aleics/gql-dyn/internal/store/postgres"
	"github.com/aleics/gql-dyn/internal/store/s3source"
	"github.com/aleics/gql-dyn/internal/store/sqlite"
)

// backend is a record location named by URI. Bare paths are JSONL files.
type backend struct {
	store.Source
	write func(ctx context.Context, records []ir.Record) error
	close func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend resolves uri:
//
//	sqlite://<path>          local snapshot database
//	postgres://... | postgresql://...
//	s3://<bucket>/<key>      JSONL object
//	<path>                   JSONL file
func openBackend(ctx context.Context, uri string, cfg config.Config) (*backend, error) {
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		db, err := sqlite.Open(strings.TrimPrefix(uri, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return &backend{Source: db, write: db.WriteRecords, close: db.Close}, nil

	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		tbl, err := postgres.New(uri)
		if err != nil {
			return nil, err
		}
		return &backend{Source: tbl, write: tbl.Write, close: tbl.Close}, nil

	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := s3source.ParseURL(uri)
		if err != nil {
			return nil, err
		}
		src, err := s3source.NewSource(ctx, bucket, key, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return &backend{Source: src, write: src.Write}, nil

	default:
		file := store.JSONLFile{Path: uri}
		return &backend{Source: file, write: func(_ context.Context, records []ir.Record) error {
			return writeJSONLFile(uri, records)
		}}, nil
	}
}

func writeJSONLFile(path string, records []ir.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return store.WriteJSONL(f, records)
}

// provider returns the catalog provider selected by --catalog. Without a
// catalog the built-in zoo is used.
func (o *RootOptions) provider() compiler.Provider {
	if o.cfg.Catalog == "" {
		return compiler.StaticProvider{Config: fixtures.DefaultCatalog()}
	}
	return compiler.FileProvider{Path: o.cfg.Catalog}
}

func (o *RootOptions) generator() *schema.Generator {
	return schema.NewGenerator(
		schema.WithInterfaceName(o.cfg.Interface),
		schema.WithListField(o.cfg.ListField),
		schema.WithLogger(slog.Default()),
	)
}

// loadCatalog compiles the catalog, mapping failures to exit errors.
func (o *RootOptions) loadCatalog(ctx context.Context) (ir.Configuration, error) {
	cfg, err := o.provider().Provide(ctx)
	if err != nil {
		return nil, catalogExitError(err)
	}
	return cfg, nil
}

// buildSchema compiles the catalog and generates a schema from it.
func (o *RootOptions) buildSchema(ctx context.Context) (*schema.Schema, error) {
	cfg, err := o.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	s, err := o.generator().Generate(cfg)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "generate schema", err)
	}
	return s, nil
}

func catalogExitError(err error) *ExitError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) && ce.Field == "path" {
		return WrapExitError(ExitCommandError, "load catalog", err)
	}
	return WrapExitError(ExitFailure, "invalid catalog", err)
}

// seed loads records from uri, validates them against cfg and appends them
// to st. An empty uri seeds nothing.
func (o *RootOptions) seed(ctx context.Context, uri string, cfg ir.Configuration, st *store.RecordStore) (int, error) {
	if uri == "" {
		return 0, nil
	}
	be, err := openBackend(ctx, uri, o.cfg)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "open records", err)
	}
	defer be.Close()

	records, err := be.Load(ctx)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "load records", err)
	}
	if err := ir.ValidateRecords(cfg, records); err != nil {
		return 0, WrapExitError(ExitFailure, fmt.Sprintf("invalid records in %s", uri), err)
	}
	if err := st.Append(records...); err != nil {
		return 0, WrapExitError(ExitFailure, fmt.Sprintf("invalid records in %s", uri), err)
	}
	return len(records), nil
}

// errorCode picks the CLI error code for err.
func errorCode(err error) string {
	switch {
	case compiler.IsCompileError(err):
		return ErrCodeCatalogInvalid
	case ir.IsValidationError(err), errors.Is(err, store.ErrDuplicateID):
		return ErrCodeRecordsInvalid
	case errors.Is(err, os.ErrNotExist):
		return ErrCodeNotFound
	default:
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.Message {
			case "load records", "open records":
				return ErrCodeLoadFailed
			case "generate schema":
				return ErrCodeBuildFailed
			}
		}
		return ErrCodeGeneric
	}
}

// fail reports err through the formatter and returns it for the exit code.
func fail(f *OutputFormatter, err error) error {
	_ = f.Error(errorCode(err), err.Error(), nil)
	return err
}
