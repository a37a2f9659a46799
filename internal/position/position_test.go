package position

import (
	"math/rand/v2"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lockstep/internal/anchor"
)

func at(page int, y float64) *anchor.PagePosition {
	return &anchor.PagePosition{PageIndex: page, Y: y}
}

func onePage() []anchor.PageMetric {
	return []anchor.PageMetric{{Index: 0, PixelHeight: 1000, Scale: 1}}
}

func TestRecomputeSinglePage(t *testing.T) {
	anchors := []anchor.Anchor{
		{ID: "a1", SourceLine: 1, Position: at(0, 10)},
		{ID: "a2", SourceLine: 50},
	}
	table := Recompute(1, onePage(), anchors, DefaultLayout(), testr.New(t))

	off, ok := table.Offset("a1")
	require.True(t, ok)
	assert.InDelta(t, 10.0, off, 1e-9)
	assert.False(t, table.Has("a2"), "anchors without page data get no entry")
	assert.Equal(t, RungPrecise, table.Rung())
	assert.Equal(t, uint64(1), table.Generation())
}

func TestRecomputeAccumulatesPagesAndGap(t *testing.T) {
	metrics := []anchor.PageMetric{
		{Index: 1, PixelHeight: 200, Scale: 2},
		{Index: 0, PixelHeight: 100, Scale: 2},
	}
	anchors := []anchor.Anchor{{ID: "x", Position: at(1, 5)}}
	table := Recompute(3, metrics, anchors, Layout{PageGap: 10}, logr.Discard())

	off, ok := table.Offset("x")
	require.True(t, ok)
	// page 0 (100) + gap (10) + 5*2
	assert.InDelta(t, 120.0, off, 1e-9)
	assert.InDelta(t, 320.0, table.TotalHeight(), 1e-9)
}

func TestRecomputeEmptyInputs(t *testing.T) {
	assert.True(t, Recompute(1, nil, []anchor.Anchor{{ID: "a", Position: at(0, 1)}}, DefaultLayout(), logr.Discard()).Empty())
	assert.True(t, Recompute(1, onePage(), nil, DefaultLayout(), logr.Discard()).Empty())
}

func TestRecomputeSkipsMalformed(t *testing.T) {
	anchors := []anchor.Anchor{
		{ID: "", Position: at(0, 1)},
		{ID: "neg", Position: at(0, -4)},
		{ID: "far", Position: at(7, 4)},
		{ID: "ok", Position: at(0, 4)},
	}
	table := Recompute(1, onePage(), anchors, DefaultLayout(), testr.New(t))
	assert.Equal(t, 1, table.Len())
	assert.True(t, table.Has("ok"))
}

func TestRecomputeMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		pages := 1 + rng.IntN(6)
		metrics := make([]anchor.PageMetric, pages)
		for i := range metrics {
			metrics[i] = anchor.PageMetric{Index: i, PixelHeight: 500 + rng.Float64()*800, Scale: 1.5}
		}

		// Anchors emitted in document order land at non-decreasing (page, y).
		n := 1 + rng.IntN(40)
		anchors := make([]anchor.Anchor, 0, n)
		page, y := 0, 0.0
		for i := 0; i < n; i++ {
			y += rng.Float64() * 60
			unit := metrics[page].UnitHeight()
			if y > unit {
				if page < pages-1 {
					page++
					y = rng.Float64() * 20
				} else {
					y = unit
				}
			}
			anchors = append(anchors, anchor.Anchor{ID: string(rune('A'+i%26)) + string(rune('0'+i/26)), SourceLine: i * 2, Position: at(page, y)})
		}

		table := Recompute(uint64(round), metrics, anchors, DefaultLayout(), logr.Discard())
		require.Equal(t, len(anchors), table.Len())

		prev := -1.0
		for _, a := range anchor.SortByLine(anchors) {
			off, ok := table.Offset(a.ID)
			require.True(t, ok)
			require.GreaterOrEqual(t, off, prev, "round %d anchor %s", round, a.ID)
			prev = off
		}
	}
}

func TestNearestUsesPixelDistance(t *testing.T) {
	table := NewOffsetTable(1, 2000, []Entry{
		{ID: "late-line", Line: 90, Offset: 100},
		{ID: "early-line", Line: 2, Offset: 900},
		{ID: "mid", Line: 40, Offset: 500},
	})

	got, ok := table.Nearest(880)
	require.True(t, ok)
	assert.Equal(t, "early-line", got.ID)

	got, _ = table.Nearest(-50)
	assert.Equal(t, "late-line", got.ID)

	got, _ = table.Nearest(5000)
	assert.Equal(t, "early-line", got.ID)

	got, _ = table.Nearest(300)
	assert.Equal(t, "late-line", got.ID, "ties prefer the earlier entry")

	_, ok = NewOffsetTable(1, 0, nil).Nearest(3)
	assert.False(t, ok)
}

func TestNilTableIsEmpty(t *testing.T) {
	var table *OffsetTable
	assert.True(t, table.Empty())
	assert.Equal(t, RungNone, table.Rung())
	_, ok := table.Offset("x")
	assert.False(t, ok)
	assert.Nil(t, table.Entries())
}

func TestLadderScenarioPreciseAndExtraction(t *testing.T) {
	in := Inputs{
		Generation: 4,
		Metrics:    onePage(),
		Anchors: []anchor.Anchor{
			{ID: "a1", SourceLine: 1, Position: at(0, 10)},
			{ID: "a2", SourceLine: 50},
		},
		// baseline 200 from the bottom of a 1000 unit page is y=800 from the top
		TextItems: []TextItem{{Page: 0, Text: "lorem a2 ipsum", Transform: [6]float64{1, 0, 0, 1, 72, 200}}},
	}
	table := NewLadder(DefaultLayout(), testr.New(t)).Table(in)

	a1, _ := table.Offset("a1")
	a2, ok := table.Offset("a2")
	require.True(t, ok)
	assert.InDelta(t, 10.0, a1, 1e-9)
	assert.InDelta(t, 800.0, a2, 1e-9)

	got, _ := table.Nearest(805)
	assert.Equal(t, "a2", got.ID)
}

func TestLadderPrefersExtractionOverGeometric(t *testing.T) {
	in := Inputs{
		Generation: 1,
		Metrics:    onePage(),
		Anchors:    []anchor.Anchor{{ID: "p", SourceLine: 0}, {ID: "q", SourceLine: 9}},
		TextItems: []TextItem{
			{Page: 0, Text: "(p)", Transform: [6]float64{5: 900}},
			{Page: 0, Text: "q", Transform: [6]float64{5: 300}},
		},
	}
	table := NewLadder(DefaultLayout(), logr.Discard()).Table(in)

	assert.Equal(t, RungExtraction, table.Rung())
	p, _ := table.Offset("p")
	q, _ := table.Offset("q")
	assert.InDelta(t, 100.0, p, 1e-9)
	assert.InDelta(t, 700.0, q, 1e-9)
	for _, e := range table.Entries() {
		assert.Equal(t, RungExtraction, e.Rung)
	}
}

func TestLadderGeometricWhenNothingPlaced(t *testing.T) {
	in := Inputs{
		Generation: 1,
		Metrics:    onePage(),
		Anchors:    []anchor.Anchor{{ID: "b", SourceLine: 5}, {ID: "a", SourceLine: 0}},
	}
	table := NewLadder(Layout{PageGap: 0, GeometricMinOffset: 8}, logr.Discard()).Table(in)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, RungGeometric, table.Rung())
	a, _ := table.Offset("a")
	b, _ := table.Offset("b")
	assert.InDelta(t, 8.0, a, 1e-9, "first anchor is clamped above zero")
	assert.InDelta(t, 500.0, b, 1e-9)
}

func TestLadderCachesPerGeneration(t *testing.T) {
	l := NewLadder(DefaultLayout(), logr.Discard())
	in := Inputs{Generation: 1, Metrics: onePage(), Anchors: []anchor.Anchor{{ID: "a", Position: at(0, 1)}}}

	first := l.Table(in)
	assert.Same(t, first, l.Table(in))

	l.Invalidate()
	assert.NotSame(t, first, l.Table(in))

	in.Generation = 2
	second := l.Table(in)
	assert.Equal(t, uint64(2), second.Generation())
}

func TestLadderGeometricUsesContentHeight(t *testing.T) {
	in := Inputs{
		Generation: 1,
		Metrics:    onePage(),
		Anchors:    []anchor.Anchor{{ID: "a", SourceLine: 0}, {ID: "b", SourceLine: 5}},
	}
	table := NewLadder(DefaultLayout(), logr.Discard()).Table(in)

	b, _ := table.Offset("b")
	assert.InDelta(t, (1000+DefaultPageGap)/2, b, 1e-9, "trailing gap is part of the content")
}

func TestGeometricEmpty(t *testing.T) {
	assert.Nil(t, Geometric(0, []anchor.Anchor{{ID: "a"}}, 8))
	assert.Nil(t, Geometric(100, nil, 8))
}

func TestExtractFirstDuplicateWins(t *testing.T) {
	pages := NewPages(onePage(), DefaultLayout(), logr.Discard())
	anchors := []anchor.Anchor{
		{ID: "d", SourceLine: 3},
		{ID: "d", SourceLine: 40},
		{ID: "s", SourceLine: 7},
		{ID: "", SourceLine: 8},
	}
	items := []TextItem{{Page: 0, Text: "d s", Transform: [6]float64{5: 200}}}

	got := Extract(1, pages, anchors, items, map[string]bool{"s": true}, logr.Discard())
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, 3, got[0].Line)
	assert.InDelta(t, 800.0, got[0].Offset, 1e-9)
}
