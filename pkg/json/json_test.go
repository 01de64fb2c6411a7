package json

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Kind string `json:"kind"`
	N    int    `json:"n"`
}

func TestStreamingEncoderLines(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamingEncoder(&buf, false)
	require.NoError(t, enc.Encode(record{"created", 1}))
	require.NoError(t, enc.Encode(record{"reused", 2}))
	require.NoError(t, enc.Close())
	assert.Equal(t, 2, enc.Count())

	sc := bufio.NewScanner(&buf)
	var got []record
	for sc.Scan() {
		var r record
		require.NoError(t, Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	assert.Equal(t, []record{{"created", 1}, {"reused", 2}}, got)
}

func TestStreamingEncoderArray(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamingEncoder(&buf, true)
	require.NoError(t, enc.Encode(record{"a", 1}))
	require.NoError(t, enc.Encode(record{"b", 2}))
	require.NoError(t, enc.Close())

	var got []record
	require.NoError(t, Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 2)

	buf.Reset()
	empty := NewStreamingEncoder(&buf, true)
	require.NoError(t, empty.Close())
	assert.Equal(t, "[]", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestStreamingEncoderStickyError(t *testing.T) {
	enc := NewStreamingEncoder(failingWriter{}, false)
	assert.ErrorContains(t, enc.Encode(record{}), "disk full")
	assert.ErrorContains(t, enc.Encode(record{}), "disk full")
	assert.ErrorContains(t, enc.Close(), "disk full")
	assert.Zero(t, enc.Count())
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("x")
	PutBuffer(buf)
	assert.Zero(t, GetBuffer().Len())
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(record{"a", 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"kind\": \"a\",\n  \"n\": 1\n}", string(data))

	var r record
	require.NoError(t, NewDecoder(bytes.NewReader(data)).Decode(&r))
	assert.Equal(t, record{"a", 1}, r)
}
