package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/aleics/gql-dyn/internal/ir"
)

// CompileCUE parses a CUE value holding a kind catalog into a Configuration.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Field types are written as CUE type constraints:
//
//	kinds: {
//		Cat: fur: string
//		Dog: breed: string
//		Elephant: age: int
//	}
//
// string maps to String and int maps to Number. Floats are rejected because
// Number is a 32-bit integer.
func CompileCUE(v cue.Value) (ir.Configuration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	kindsVal := v.LookupPath(cue.ParsePath("kinds"))
	if !kindsVal.Exists() {
		return nil, &CompileError{
			Field:   "kinds",
			Message: "kinds is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := kindsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	cfg := ir.Configuration{}
	for iter.Next() {
		kind := ir.KindID(iter.Label())
		kindValue := iter.Value()

		ks := ir.KindSchema{Kind: kind, Fields: map[string]ir.FieldType{}}
		fieldIter, err := kindValue.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fieldIter.Next() {
			fieldName := fieldIter.Label()
			ft, err := extractFieldType(fieldIter.Value(), fmt.Sprintf("kinds.%s.%s", kind, fieldName))
			if err != nil {
				return nil, err
			}
			ks.Fields[fieldName] = ft
		}
		cfg[kind] = ks
	}

	if err := ir.ValidateConfiguration(cfg, ReservedNames...); err != nil {
		return nil, fromConfigError(err, kindsVal.Pos())
	}
	return cfg, nil
}

// extractFieldType maps a CUE type constraint to a FieldType.
func extractFieldType(v cue.Value, path string) (ir.FieldType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.FieldString, nil
	case cue.IntKind:
		return ir.FieldNumber, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   path,
			Message: "float types are not supported - Number is a 32-bit int",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileCUEBytes compiles a single CUE catalog file.
func CompileCUEBytes(filename string, data []byte) (ir.Configuration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return CompileCUE(v)
}

// CompileCUEDir loads every CUE file of the package in dir and compiles
// the unified value. This lets a catalog be split across files.
func CompileCUEDir(dir string) (ir.Configuration, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if !info.IsDir() {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "cue", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &CompileError{Field: "cue", Message: fmt.Sprintf("loading CUE files: %v", inst.Err), Pos: token.NoPos}
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCUE(value)
}
