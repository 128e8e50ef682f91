package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

func (r cmdResult) code() int { return GetExitCode(r.err) }

// execute runs the CLI with args and stdin.
func execute(t *testing.T, stdin string, args ...string) cmdResult {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	return executeWith(context.Background(), &ServeOptions{}, stdin, args...)
}

func executeWith(ctx context.Context, serveOpts *ServeOptions, stdin string, args ...string) cmdResult {
	cmd := newRootCommand(serveOpts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const zooRecords = `{"id":"c1","name":"Tom","kind":"Cat","fields":{"fur":"grey"}}
{"id":"d1","name":"Rex","kind":"Dog","fields":{"breed":"boxer"}}
{"id":"e1","name":"Dumbo","kind":"Elephant","fields":{"age":4}}
`

const birdCatalog = `kinds:
  Bird:
    wingspan: number
    song: string
`
