package position

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
)

// TextItem is one run of text extracted from a rendered page.
type TextItem struct {
	// Page is the 0-based page index.
	Page int

	// Text is the extracted string. Anchor tokens are embedded invisibly
	// by the preprocessor and appear here as whitespace-separated fields.
	Text string

	// Transform is the text matrix [a b c d e f]. Transform[5] is the
	// baseline y in page units measured from the bottom of the page.
	Transform [6]float64
}

// Extract locates anchor tokens in page text. Only anchors listed in
// anchors are searched for; the first hit for an ID wins. Anchors already
// present in skip are not placed again.
func Extract(generation uint64, pages *Pages, anchors []anchor.Anchor, items []TextItem, skip map[string]bool, log logr.Logger) []Entry {
	if pages.Len() == 0 || len(anchors) == 0 || len(items) == 0 {
		return nil
	}

	wanted := anchor.Index(anchors)
	delete(wanted, "")
	for id, ok := range skip {
		if ok {
			delete(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	var entries []Entry
	for _, it := range items {
		for _, field := range strings.Fields(it.Text) {
			token := strings.Trim(field, "\"'()[]<>,.;:")
			a, ok := wanted[token]
			if !ok {
				continue
			}
			top, ok := pages.Top(it.Page)
			if !ok {
				log.V(1).Info("token on unknown page", "anchor", token, "page", it.Page, "generation", generation)
				continue
			}
			m, _ := pages.Metric(it.Page)
			y := m.UnitHeight() - it.Transform[5]
			if y < 0 {
				y = 0
			}
			entries = append(entries, Entry{
				ID:     token,
				Line:   a.SourceLine,
				Offset: top + y*m.Scale,
				Rung:   RungExtraction,
			})
			delete(wanted, token)
			if len(wanted) == 0 {
				return entries
			}
		}
	}
	return entries
}
