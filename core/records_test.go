package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRecords(t *testing.T) {
	docs := []Document{
		{Content: "first", Metadata: Metadata{"source": "a.txt", "page": 2}},
		{Content: "second"},
		{Content: "third", Metadata: Metadata{TextField: "shadowed"}},
	}

	records := ToRecords(docs)

	require.Len(t, records, 3)
	assert.Equal(t, Record{"text": "first", "source": "a.txt", "page": 2}, records[0])
	assert.Equal(t, Record{"text": "second"}, records[1])
	assert.Equal(t, "third", records[2][TextField])
	assert.NotNil(t, ToRecords(nil))
}

func TestRecord_ToDocument(t *testing.T) {
	t.Run("splits text and metadata", func(t *testing.T) {
		doc, ok := Record{"body": "hello", "lang": "en"}.ToDocument("body")
		require.True(t, ok)
		assert.Equal(t, "hello", doc.Content)
		assert.Equal(t, Metadata{"lang": "en"}, doc.Metadata)
	})

	t.Run("missing text column", func(t *testing.T) {
		_, ok := Record{"lang": "en"}.ToDocument("text")
		assert.False(t, ok)
	})

	t.Run("non-string text column", func(t *testing.T) {
		_, ok := Record{"text": 12}.ToDocument("text")
		assert.False(t, ok)
	})

	t.Run("round trips through ToRecord", func(t *testing.T) {
		in := Document{Content: "c", Metadata: Metadata{"k": "v"}}
		out, ok := ToRecord(in).ToDocument(TextField)
		require.True(t, ok)
		assert.Equal(t, in, out)
	})
}
