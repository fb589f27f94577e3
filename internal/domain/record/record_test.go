package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incidentJSON = `{
	"sys_id": "46d44a5dc0a8010e0000e4ba1e35e0a8",
	"number": "INC0010001",
	"priority": "1",
	"reassignment_count": 2,
	"active": true,
	"closed_at": null,
	"caller_id": {"display_value": "Abel Tuter", "value": "62826bf03710200044e0bfc8bcbe5df1", "link": "https://example.service-now.com/api/now/table/sys_user/62826bf0"},
	"work_notes_list": ["a", "b"],
	"variables": {"size": "large"}
}`

func TestRecord_Decode(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(incidentJSON), &rec))

	assert.Equal(t, "46d44a5dc0a8010e0000e4ba1e35e0a8", rec.SysID())
	assert.Equal(t, KindString, rec["number"].Kind())
	assert.Equal(t, KindNumber, rec["reassignment_count"].Kind())
	assert.Equal(t, "2", rec.Text("reassignment_count"))
	assert.Equal(t, KindBool, rec["active"].Kind())
	assert.Equal(t, "true", rec.Text("active"))
	assert.True(t, rec["closed_at"].IsNull())
	assert.Equal(t, "", rec.Text("closed_at"))

	ref, ok := rec["caller_id"].Reference()
	require.True(t, ok)
	assert.Equal(t, "Abel Tuter", ref.DisplayValue)
	assert.Equal(t, "Abel Tuter", rec.Text("caller_id"))

	assert.Equal(t, KindRaw, rec["work_notes_list"].Kind())
	assert.Equal(t, KindRaw, rec["variables"].Kind())
	assert.Equal(t, "", rec.Text("missing"))
}

func TestRecord_RoundTripPreservesShape(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(incidentJSON), &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, incidentJSON, string(out))
}

func TestRecord_RoundTripKeepsEmptyReferenceKeys(t *testing.T) {
	const in = `{"assigned_to":{"display_value":"","link":"https://example.service-now.com/api/now/table/sys_user/46d44a23","value":"46d44a23"}}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(in), &rec))
	ref, ok := rec["assigned_to"].Reference()
	require.True(t, ok)
	assert.Empty(t, ref.DisplayValue)
	assert.Equal(t, "46d44a23", rec.Text("assigned_to"))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	m, ok := rec.Interface()["assigned_to"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "display_value")
}

func TestValue_ReferenceFallsBackToValue(t *testing.T) {
	v := Ref(Reference{Value: "abc"})
	assert.Equal(t, "abc", v.Text())
}

func TestRecord_Interface(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(incidentJSON), &rec))

	m := rec.Interface()
	caller, ok := m["caller_id"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Abel Tuter", caller["display_value"])
	assert.Nil(t, m["closed_at"])
	assert.Equal(t, []any{"a", "b"}, m["work_notes_list"])
}
