package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/server"
)

type addrs struct{ http, grpc string }

// startServe runs the serve command until the test ends.
func startServe(t *testing.T, args ...string) addrs {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	ready := make(chan addrs, 1)
	opts := &ServeOptions{onReady: func(h, g string) { ready <- addrs{h, g} }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan cmdResult, 1)
	go func() {
		done <- executeWith(ctx, opts, "", append([]string{"serve", "--http-addr", "127.0.0.1:0", "--grpc-addr", "127.0.0.1:0"}, args...)...)
	}()

	select {
	case a := <-ready:
		t.Cleanup(func() {
			cancel()
			select {
			case res := <-done:
				assert.NoError(t, res.err, res.stdout)
			case <-time.After(10 * time.Second):
				t.Error("serve did not shut down")
			}
		})
		return a
	case res := <-done:
		cancel()
		t.Fatalf("serve exited early: %v\n%s", res.err, res.stdout)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("serve did not become ready")
	}
	return addrs{}
}

func postGraphQL(t *testing.T, addr, query string) gqlResponse {
	t.Helper()
	body, err := json.Marshal(schema.Request{Query: query})
	require.NoError(t, err)
	resp, err := http.Post("http://"+addr+"/graphql", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	return decodeResponse(t, string(data))
}

func TestServeHTTPAndGRPC(t *testing.T) {
	records := writeFile(t, "zoo.jsonl", zooRecords)
	a := startServe(t, "--records", records)

	resp := postGraphQL(t, a.http, "{ animals { name } }")
	assert.Equal(t, []string{"Tom", "Rex", "Dumbo"}, names(resp))

	conn, err := grpc.NewClient(a.grpc, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	out, err := server.NewQueryClient(conn).Execute(context.Background(), schema.Request{Query: `{ animals(kind: "Cat") { name } }`})
	require.NoError(t, err)
	data, _ := out["data"].(map[string]any)
	animals, _ := data["animals"].([]any)
	require.Len(t, animals, 1)
	assert.Equal(t, "Tom", animals[0].(map[string]any)["name"])
}

func TestServeAppendThenQuery(t *testing.T) {
	a := startServe(t)

	body := `{"records":[{"id":"e9","name":"Nellie","kind":"Elephant","fields":{"age":30}}]}`
	resp, err := http.Post("http://"+a.http+"/v1/records", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := postGraphQL(t, a.http, "{ animals { name ... on Elephant { age } } }")
	require.Len(t, got.Data.Animals, 1)
	assert.Equal(t, float64(30), got.Data.Animals[0]["age"])
}

func TestServePerRequestSchema(t *testing.T) {
	catalog := writeFile(t, "zoo.yaml", "kinds:\n  Cat:\n    fur: string\n")
	a := startServe(t, "--catalog", catalog, "--schema-mode", "per-request")

	got := postGraphQL(t, a.http, "{ animals { name } }")
	assert.Empty(t, got.Errors)
}

func TestServeRejectsInvalidSeed(t *testing.T) {
	records := writeFile(t, "bad.jsonl", `{"id":"1","name":"A","kind":"Unicorn","fields":{}}`+"\n")
	res := execute(t, "", "serve", "--records", records, "--http-addr", "127.0.0.1:0", "--grpc-addr", "")
	assert.Equal(t, ExitFailure, res.code())
	assert.Contains(t, res.stdout, "UNKNOWN_KIND")
}

func TestServeNothingToServe(t *testing.T) {
	res := execute(t, "", "serve", "--http-addr", "", "--grpc-addr", "")
	assert.Equal(t, ExitCommandError, res.code())
}

func TestServeIngestRequiresNATS(t *testing.T) {
	res := execute(t, "", "serve", "--ingest")
	assert.Equal(t, ExitCommandError, res.code())
	assert.Contains(t, res.stderr, "nats-url")
}

func postRecords(t *testing.T, addr, body string) int {
	t.Helper()
	resp, err := http.Post("http://"+addr+"/v1/records", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestServeStaticSchemaRejectsKindsAddedLater(t *testing.T) {
	catalog := writeFile(t, "zoo.yaml", "kinds:\n  Cat:\n    fur: string\n")
	a := startServe(t, "--catalog", catalog)

	require.NoError(t, os.WriteFile(catalog, []byte("kinds:\n  Cat:\n    fur: string\n  Bird:\n    song: string\n"), 0o644))

	status := postRecords(t, a.http, `{"records":[{"id":"b1","name":"Robin","kind":"Bird","fields":{"song":"trill"}}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	got := postGraphQL(t, a.http, "{ animals { name } }")
	assert.Empty(t, got.Errors)
	assert.Empty(t, got.Data.Animals)
}

func TestServePerRequestSchemaAcceptsKindsAddedLater(t *testing.T) {
	catalog := writeFile(t, "zoo.yaml", "kinds:\n  Cat:\n    fur: string\n")
	a := startServe(t, "--catalog", catalog, "--schema-mode", "per-request")

	require.NoError(t, os.WriteFile(catalog, []byte("kinds:\n  Cat:\n    fur: string\n  Bird:\n    song: string\n"), 0o644))

	status := postRecords(t, a.http, `{"records":[{"id":"b1","name":"Robin","kind":"Bird","fields":{"song":"trill"}}]}`)
	require.Equal(t, http.StatusCreated, status)

	got := postGraphQL(t, a.http, "{ animals { name ... on Bird { song } } }")
	assert.Empty(t, got.Errors)
	require.Len(t, got.Data.Animals, 1)
	assert.Equal(t, "trill", got.Data.Animals[0]["song"])
}
