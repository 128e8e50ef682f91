package cli

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBuiltinCatalog(t *testing.T) {
	res := execute(t, "", "validate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Catalog valid")
}

func TestValidateCatalogArgument(t *testing.T) {
	res := execute(t, "", "validate", writeFile(t, "birds.yaml", birdCatalog), "--format", "json")
	require.NoError(t, res.err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Kinds)
	assert.NotEmpty(t, resp.Data.Fingerprint)
}

func TestValidateInvalidCatalog(t *testing.T) {
	catalog := writeFile(t, "bad.yaml", "kinds:\n  Query:\n    x: string\n")
	res := execute(t, "", "validate", catalog, "--format", "json")
	assert.Equal(t, ExitFailure, res.code())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalogInvalid, resp.Error.Code)
}

func TestValidateRecords(t *testing.T) {
	records := writeFile(t, "zoo.jsonl", zooRecords)
	res := execute(t, "", "validate", "--records", records)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "records valid")
}

func TestValidateRecordsReportsEveryBadRecord(t *testing.T) {
	records := writeFile(t, "bad.jsonl", `{"id":"1","name":"A","kind":"Unicorn","fields":{}}
{"id":"2","name":"B","kind":"Cat","fields":{"fur":3}}
{"id":"3","name":"C","kind":"Dog","fields":{"breed":"pug"}}
`)
	res := execute(t, "", "validate", "--records", records, "--format", "json")
	assert.Equal(t, ExitFailure, res.code())

	var resp struct {
		Error struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, 3, resp.Error.Details.Records)
	require.Len(t, resp.Error.Details.Errors, 2)
	assert.Equal(t, "UNKNOWN_KIND", resp.Error.Details.Errors[0].Code)
	assert.Equal(t, "TYPE_MISMATCH", resp.Error.Details.Errors[1].Code)
	assert.Equal(t, "fur", resp.Error.Details.Errors[1].Field)
}

func TestValidateDuplicateIDs(t *testing.T) {
	records := writeFile(t, "dup.jsonl", zooRecords+`{"id":"c1","name":"Tom again","kind":"Cat","fields":{}}`+"\n")
	res := execute(t, "", "validate", "--records", records)
	assert.Equal(t, ExitFailure, res.code())
	assert.Contains(t, res.stdout, "DUPLICATE_ID")
}
