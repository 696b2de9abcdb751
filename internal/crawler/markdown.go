package crawler

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

type markdownConverter struct {
	conv  *converter.Converter
	strip *bluemonday.Policy
}

func newMarkdownConverter() *markdownConverter {
	return &markdownConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		strip: bluemonday.StrictPolicy(),
	}
}

// Convert turns HTML into markdown. If conversion fails or produces empty
// output it falls back to the stripped plain text.
func (m *markdownConverter) Convert(html, sourceURL string) string {
	if html == "" {
		return ""
	}
	result, err := m.conv.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return strings.TrimSpace(m.strip.Sanitize(html))
	}
	return strings.TrimSpace(result)
}
