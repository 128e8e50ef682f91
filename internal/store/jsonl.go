package store

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/aleics/gql-dyn/internal/ir"
)

// Source loads a batch of records to seed a store.
type Source interface {
	Load(ctx context.Context) ([]ir.Record, error)
}

// Load reads every record of src into s.
func Load(ctx context.Context, s *RecordStore, src Source) (int, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Append(records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// ReadJSONL decodes one record per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]ir.Record, error) {
	var records []ir.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec ir.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return records, nil
}

// WriteJSONL encodes one record per line.
func WriteJSONL(w io.Writer, records []ir.Record) error {
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %q: %w", rec.ID, err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// JSONLFile is a Source backed by a local JSONL file.
type JSONLFile struct {
	Path string
}

// Load implements Source.
func (f JSONLFile) Load(ctx context.Context) ([]ir.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer file.Close()

	records, err := ReadJSONL(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return records, nil
}
