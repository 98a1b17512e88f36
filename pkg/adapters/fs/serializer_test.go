package fs

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notesd/pkg/core"
)

func sampleTable() core.Table {
	return core.Table{Name: "notes", Records: []core.Record{
		{"id": 0, "title": "A", "content": "B"},
		{"id": 2, "title": "C", "content": "multi\nline, with comma"},
	}}
}

func TestSerializerFor(t *testing.T) {
	for _, name := range []string{"out.json", "OUT.YAML", "x.yml", "table.csv", "yaml", "csv"} {
		_, err := SerializerFor(name)
		assert.NoError(t, err, name)
	}
	_, err := SerializerFor("notes.md")
	assert.Error(t, err)
}

func TestSerializers_EncodeDecode(t *testing.T) {
	for ext, s := range DefaultSerializers() {
		t.Run(ext, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, s.Encode(&buf, sampleTable()))

			records, err := s.Decode(&buf)
			require.NoError(t, err)
			require.Len(t, records, 2)

			assert.Equal(t, "A", records[0]["title"])
			assert.Equal(t, "multi\nline, with comma", records[1]["content"])
			id, err := core.CoerceID(records[1]["id"])
			require.NoError(t, err)
			assert.Equal(t, 2, id)
		})
	}
}

func TestSerializers_EmptyTable(t *testing.T) {
	for ext, s := range DefaultSerializers() {
		t.Run(ext, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, s.Encode(&buf, core.Table{Name: "empty"}))
			records, err := s.Decode(&buf)
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestCSVSerializer_Columns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVSerializer{}.Encode(&buf, core.Table{Records: []core.Record{
		{"id": 0, "title": "A", "tags": []any{"x", "y"}},
		{"id": 1, "content": "only"},
	}}))
	assert.Equal(t, "id,content,tags,title\n0,,\"[\"\"x\"\",\"\"y\"\"]\",A\n1,only,,\n", buf.String())

	records, err := CSVSerializer{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, records[0]["tags"])
}

func TestJSONSerializer_RejectsNonObjects(t *testing.T) {
	_, err := JSONSerializer{}.Decode(bytes.NewBufferString(`[{"title":"a"}, null]`))
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	_, err = JSONSerializer{}.Decode(bytes.NewBufferString(`{"title":"a"}`))
	assert.Error(t, err)
}

func TestUnmarshalCSVValue(t *testing.T) {
	assert.Equal(t, "plain", UnmarshalCSVValue("plain"))
	assert.Equal(t, "{not json}", UnmarshalCSVValue("{not json}"))
	assert.Equal(t, map[string]any{"n": json.Number("1")}, UnmarshalCSVValue(`{"n":1}`))
}
