package typst

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshills/lockstep/internal/position"
)

// DefaultPDFToText is the poppler text extractor looked up on PATH.
const DefaultPDFToText = "pdftotext"

// TextExtractor reads word boxes from a compiled PDF.
type TextExtractor struct {
	binary string
	runner Runner
}

// NewTextExtractor creates an extractor using binary (DefaultPDFToText when
// empty).
func NewTextExtractor(binary string, runner Runner) *TextExtractor {
	if binary == "" {
		binary = DefaultPDFToText
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TextExtractor{binary: binary, runner: runner}
}

// TextItems returns every word of the PDF at artifact.
func (x *TextExtractor) TextItems(ctx context.Context, artifact string) ([]position.TextItem, error) {
	out, err := x.runner.Run(ctx, filepath.Dir(artifact), x.binary, "-bbox", artifact, "-")
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return ParseBBox(out)
}

// ParseBBox parses "pdftotext -bbox" XHTML. Each word becomes one item
// whose transform places its baseline (yMax) measured from the page bottom.
func ParseBBox(data []byte) ([]position.TextItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var (
		items      []position.TextItem
		pageHeight float64
		word       *position.TextItem
		text       strings.Builder
	)
	page := -1
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse bbox output: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "page":
				page++
				pageHeight = floatAttr(t, "height")
			case "word":
				if page < 0 {
					continue
				}
				word = &position.TextItem{
					Page:      page,
					Transform: [6]float64{1, 0, 0, 1, floatAttr(t, "xMin"), pageHeight - floatAttr(t, "yMax")},
				}
				text.Reset()
			}
		case xml.CharData:
			if word != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "word" && word != nil {
				word.Text = strings.TrimSpace(text.String())
				if word.Text != "" {
					items = append(items, *word)
				}
				word = nil
			}
		}
	}
	return items, nil
}

func floatAttr(el xml.StartElement, name string) float64 {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			f, err := strconv.ParseFloat(a.Value, 64)
			if err != nil {
				return 0
			}
			return f
		}
	}
	return 0
}
