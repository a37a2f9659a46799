package typst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/lockstep/internal/anchor"
)

// QueryLabel labels the metadata emitted by the anchor function.
const QueryLabel = "<lockstep-anchor>"

// Location is where the typesetter placed an anchor.
type Location struct {
	// Page is 0-based.
	Page int
	X    float64
	Y    float64
}

// ParsePositions reads the JSON output of "typst query". Two shapes are
// accepted: metadata elements whose value is {id, page, y}, and labelled
// elements carrying a location {page, position|point|pos: {x, y}}. Pages
// are 1-based on the wire. Entries without an anchor id are ignored.
func ParsePositions(data []byte) (map[string]Location, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("typst query output is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("typst query output is not an array")
	}

	out := make(map[string]Location)
	root.ForEach(func(_, entry gjson.Result) bool {
		if id, loc, ok := metadataLocation(entry); ok {
			out[id] = loc
			return true
		}
		if id, loc, ok := labelledLocation(entry); ok {
			out[id] = loc
		}
		return true
	})
	return out, nil
}

func metadataLocation(entry gjson.Result) (string, Location, bool) {
	value := entry.Get("value")
	id := value.Get("id").String()
	if !value.IsObject() || !strings.HasPrefix(id, AnchorPrefix) {
		return "", Location{}, false
	}
	return id, Location{
		Page: wirePage(value.Get("page")),
		X:    length(value.Get("x")),
		Y:    length(value.Get("y")),
	}, true
}

func labelledLocation(entry gjson.Result) (string, Location, bool) {
	label := strings.Trim(findLabel(entry), "<>")
	if !strings.HasPrefix(label, AnchorPrefix) {
		return "", Location{}, false
	}
	location := entry.Get("location")
	if !location.Exists() {
		return "", Location{}, false
	}
	pos := location.Get("position")
	if !pos.Exists() {
		pos = location.Get("point")
	}
	if !pos.Exists() {
		pos = location.Get("pos")
	}
	return label, Location{
		Page: wirePage(location.Get("page")),
		X:    length(pos.Get("x")),
		Y:    length(pos.Get("y")),
	}, true
}

// findLabel searches value, target, node and fields recursively.
func findLabel(v gjson.Result) string {
	switch {
	case v.IsObject():
		if l := v.Get("label"); l.Type == gjson.String {
			return l.String()
		}
		for _, key := range []string{"value", "target", "node", "fields"} {
			if child := v.Get(key); child.Exists() {
				if found := findLabel(child); found != "" {
					return found
				}
			}
		}
	case v.IsArray():
		for _, child := range v.Array() {
			if found := findLabel(child); found != "" {
				return found
			}
		}
	}
	return ""
}

func wirePage(v gjson.Result) int {
	page := int(v.Int())
	if page < 1 {
		page = 1
	}
	return page - 1
}

// length reads a number or a "12.5pt" string.
func length(v gjson.Result) float64 {
	if v.Type == gjson.String {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v.String(), "pt")), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return v.Float()
}

// AttachPositions returns a copy of anchors with the placed ones given a
// page position. Anchors missing from locs keep a nil Position.
func AttachPositions(anchors []anchor.Anchor, locs map[string]Location) []anchor.Anchor {
	out := make([]anchor.Anchor, len(anchors))
	for i, a := range anchors {
		out[i] = a
		if loc, ok := locs[a.ID]; ok {
			out[i].Position = &anchor.PagePosition{PageIndex: loc.Page, Y: loc.Y}
		}
	}
	return out
}
