package highlight

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/csheth/folio/internal/storage"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Export renders the whole store as a downloadable artifact. The json
// format is a verbatim pretty-printed dump; the text format is a
// human-readable digest grouped by essay.
func Export(store storage.Store, format string) ([]byte, error) {
	records := load(store)
	switch format {
	case FormatJSON:
		return json.MarshalIndent(records, "", "  ")
	case FormatText:
		return []byte(textDigest(records)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func textDigest(records map[string][]Highlight) string {
	slugs := make([]string, 0, len(records))
	for slug := range records {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var b strings.Builder
	b.WriteString("Highlights\n==========\n")
	for _, slug := range slugs {
		list := records[slug]
		if len(list) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(slug)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(slug)))
		b.WriteString("\n")
		for _, h := range list {
			fmt.Fprintf(&b, "  %q [%s] %s\n", h.Text, h.Color, h.CreatedAt.Format("Jan 2, 2006"))
		}
	}
	return b.String()
}
