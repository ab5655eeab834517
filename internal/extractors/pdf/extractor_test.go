package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, "pdf", e.Name())
	assert.Equal(t, []string{"pdf"}, e.Extensions())
}

func TestExtract_NotAPDF(t *testing.T) {
	e := New()

	text, err := e.Extract(context.Background(), domain.DocumentBlob{
		Name:    "fake.pdf",
		Content: []byte("this is not a pdf"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Empty(t, text)
}

func TestExtract_Empty(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), domain.DocumentBlob{Name: "empty.pdf"})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
