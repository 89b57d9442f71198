package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte(`{"node":"select","n":3,"ok":true,"path":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, Object{
		"node": String("select"),
		"n":    Int(3),
		"ok":   Bool(true),
		"path": Array{String("a"), String("b")},
	}, v)
}

func TestParseValueRejects(t *testing.T) {
	for _, in := range []string{`null`, `1.5`, `{"x":1e3}`, `[1,null]`, `99999999999999999999`, `{`} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseValue([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestObjectJSONRoundTrip(t *testing.T) {
	in := Obj(P("reason", String("completed")), P("tick", Int(7)))
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"reason":"completed","tick":7}`, string(data))

	var out Object
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &out))
}

func TestObjectStr(t *testing.T) {
	o := Obj(P("node", String("extract")), P("n", Int(1)))
	assert.Equal(t, "extract", o.Str("node"))
	assert.Equal(t, "", o.Str("n"))
	assert.Equal(t, "", o.Str("missing"))
}

func TestObjSortedKeys(t *testing.T) {
	o := Obj(P("b", Int(1)), P("a", Int(2)), P("b", Int(3)))
	assert.Equal(t, []string{"a", "b"}, o.SortedKeys())
	assert.Equal(t, Int(3), o["b"], "later pairs win")
}
