package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "text/markdown; charset=utf-8", ContentTypeFor("page.md"))
	require.Equal(t, "application/json", ContentTypeFor("results.json"))
	require.Equal(t, "text/plain; charset=utf-8", ContentTypeFor("notes.txt"))
	require.Equal(t, "application/octet-stream", ContentTypeFor("image.png"))
	require.Equal(t, "application/octet-stream", ContentTypeFor("noextension"))
}
