package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentBlob_Extension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.PDF", "pdf"},
		{"notes.md", "md"},
		{"data.tar.gz", "gz"},
		{"README", ""},
		{"Sheet.XlSx", "xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentBlob{Name: tt.name}.Extension())
		})
	}
}

func TestNormaliseExtension(t *testing.T) {
	assert.Equal(t, "txt", NormaliseExtension(".TXT"))
	assert.Equal(t, "csv", NormaliseExtension(" csv "))
	assert.Equal(t, "", NormaliseExtension(""))
}

func TestChunkContents(t *testing.T) {
	chunks := []Chunk{
		{ID: "chunk-0", Content: "first"},
		{ID: "chunk-1", Content: "second"},
	}
	assert.Equal(t, []string{"first", "second"}, ChunkContents(chunks))
	assert.Empty(t, ChunkContents(nil))
}
