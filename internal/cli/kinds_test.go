package cli

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsTable(t *testing.T) {
	res := execute(t, "", "kinds")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "Cat")
	assert.Contains(t, res.stdout, "breed: String")
	assert.Contains(t, res.stdout, "age: Number")
	assert.NotContains(t, res.stdout, "RECORDS")
}

func TestKindsWithRecordCounts(t *testing.T) {
	records := writeFile(t, "zoo.jsonl", zooRecords+`{"id":"c2","name":"Felix","kind":"Cat","fields":{}}`+"\n")
	res := execute(t, "", "kinds", "--records", records, "--format", "json")
	require.NoError(t, res.err)

	var resp struct {
		Data []KindRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "Cat", string(resp.Data[0].Kind))
	require.NotNil(t, resp.Data[0].Count)
	assert.Equal(t, 2, *resp.Data[0].Count)
	assert.Equal(t, 1, *resp.Data[2].Count)
}

func TestKindsMissingRecords(t *testing.T) {
	res := execute(t, "", "kinds", "--records", "nope.jsonl")
	assert.Equal(t, ExitCommandError, res.code())
	assert.Contains(t, res.stdout, "E005")
}
