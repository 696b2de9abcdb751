package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectContentRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	_, err := selectContent("<html></html>", "screenshot")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown content source")
}

func TestCleanedStripsScriptsAndHandlers(t *testing.T) {
	t.Parallel()

	html := `<body><p onclick="evil()">text</p><script>evil()</script><style>p{}</style></body>`
	out, err := selectContent(html, SourceCleaned)
	require.NoError(t, err)
	require.Contains(t, out, "text")
	require.NotContains(t, out, "script")
	require.NotContains(t, out, "onclick")
	require.NotContains(t, out, "style")
}

func TestFitFallsBackToBodyWithoutContentRegion(t *testing.T) {
	t.Parallel()

	html := `<html><body><div><p>plain page</p></div></body></html>`
	out, err := selectContent(html, SourceFit)
	require.NoError(t, err)
	require.Contains(t, out, "plain page")
}

func TestFitPrefersEarlierSelectors(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<main><p>main region</p></main>
<article><p>article region</p></article>
</body></html>`
	out, err := selectContent(html, SourceFit)
	require.NoError(t, err)
	// article outranks main in the selector order
	require.Contains(t, out, "article region")
	require.NotContains(t, out, "main region")
}

func TestMarkdownConverterFallsBackToPlainText(t *testing.T) {
	t.Parallel()

	m := newMarkdownConverter()
	require.Equal(t, "", m.Convert("", "https://example.com"))

	out := m.Convert("<p>hello <b>world</b></p>", "https://example.com")
	require.Contains(t, out, "hello **world**")
}

func TestMarkdownConverterResolvesRelativeLinks(t *testing.T) {
	t.Parallel()

	m := newMarkdownConverter()
	out := m.Convert(`<p><a href="/docs">docs</a></p>`, "https://example.com")
	require.Contains(t, out, "https://example.com/docs")
}
