package typst

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bboxFixture = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title></title>
<meta name="Producer" content="Typst">
</head>
<body>
<doc>
  <page width="595.276000" height="841.890000">
    <word xMin="72.000000" yMin="90.000000" xMax="100.000000" yMax="100.000000">tf-0-0</word>
    <word xMin="110.000000" yMin="90.000000" xMax="140.000000" yMax="100.000000">Fish&amp;Chips</word>
    <word xMin="150.000000" yMin="90.000000" xMax="160.000000" yMax="100.000000">  </word>
  </page>
  <page width="595.276000" height="400.000000">
    <word xMin="72.000000" yMin="200.000000" xMax="100.000000" yMax="210.000000">tf-9-1</word>
  </page>
</doc>
</body>
</html>
`

func TestParseBBox(t *testing.T) {
	items, err := ParseBBox([]byte(bboxFixture))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, 0, items[0].Page)
	assert.Equal(t, "tf-0-0", items[0].Text)
	assert.Equal(t, 72.0, items[0].Transform[4])
	assert.InDelta(t, 741.89, items[0].Transform[5], 1e-9)

	assert.Equal(t, "Fish&Chips", items[1].Text)

	assert.Equal(t, 1, items[2].Page)
	assert.Equal(t, "tf-9-1", items[2].Text)
	assert.InDelta(t, 190.0, items[2].Transform[5], 1e-9)
}

func TestParseBBoxEmpty(t *testing.T) {
	items, err := ParseBBox([]byte(`<html><body><doc></doc></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTextExtractorRunsPDFToText(t *testing.T) {
	var gotDir, gotName string
	var gotArgs []string
	runner := RunnerFunc(func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		gotDir, gotName, gotArgs = dir, name, args
		return []byte(bboxFixture), nil
	})

	items, err := NewTextExtractor("", runner).TextItems(context.Background(), "/tmp/build-000001/document.pdf")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "/tmp/build-000001", gotDir)
	assert.Equal(t, DefaultPDFToText, gotName)
	assert.Equal(t, []string{"-bbox", "/tmp/build-000001/document.pdf", "-"}, gotArgs)
}
