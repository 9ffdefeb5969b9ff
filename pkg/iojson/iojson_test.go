package iojson

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, map[string]int{"a": 1}))
	require.NoError(t, WriteLine(&buf, map[string]int{"b": 2}))

	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
}

func TestWriteLine_MarshalError(t *testing.T) {
	var buf bytes.Buffer
	err := WriteLine(&buf, make(chan int))
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestWriteWith_Indents(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, map[string]string{"k": "v"}))

	assert.Equal(t, "{\n  \"k\": \"v\"\n}\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestWriteWith_MarshalErrorGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, func() {}))

	assert.Empty(t, out.String())

	var e Error
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &e))
	assert.Contains(t, e.Message, "error marshaling")
}

func TestFileReader_Stdin(t *testing.T) {
	type input struct {
		Name string `json:"name"`
	}

	fr := &FileReader[input]{Stdin: strings.NewReader(`{"name":"tea"}`)}
	got, err := fr.Read()
	require.NoError(t, err)
	assert.Equal(t, "tea", got.Name)

	fr = &FileReader[input]{Stdin: strings.NewReader(`{`)}
	_, err = fr.Read()
	assert.ErrorContains(t, err, "decode JSON")
}
