package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinesVisibleRange(t *testing.T) {
	v := NewLines(24, 100)
	assert.Equal(t, LineRange{First: 0, Last: 23}, v.VisibleRange())

	v.ScrollTo(10)
	assert.Equal(t, LineRange{First: 10, Last: 33}, v.VisibleRange())
	assert.True(t, v.IsLineVisible(33))
	assert.False(t, v.IsLineVisible(34))
}

func TestLinesClamp(t *testing.T) {
	v := NewLines(24, 100)
	v.ScrollTo(500)
	assert.Equal(t, 76, v.TopLine())

	v.ScrollTo(-3)
	assert.Equal(t, 0, v.TopLine())

	short := NewLines(24, 10)
	short.ScrollTo(5)
	assert.Equal(t, 0, short.TopLine())
	assert.Equal(t, LineRange{First: 0, Last: 9}, short.VisibleRange())
}

func TestLinesSetScrollTopRounds(t *testing.T) {
	v := NewLines(10, 100)
	v.SetScrollTop(9.7)
	assert.Equal(t, 10, v.TopLine())
	assert.Equal(t, 1, v.Mutations())

	v.SetScrollTop(10.2)
	assert.Equal(t, 1, v.Mutations(), "same line is not a mutation")
}

func TestLinesCenterOn(t *testing.T) {
	v := NewLines(20, 200)
	v.CenterOn(50)
	assert.Equal(t, 40, v.TopLine())
}

func TestLinesShrinkClampsTop(t *testing.T) {
	v := NewLines(10, 100)
	v.ScrollTo(80)
	v.SetLineCount(50)
	assert.Equal(t, 40, v.TopLine())
}

func TestLineRange(t *testing.T) {
	r := LineRange{First: 20, Last: 10}.Normalize()
	assert.Equal(t, LineRange{First: 10, Last: 20}, r)
	assert.InDelta(t, 15.0, r.Mid(), 1e-9)
	assert.Equal(t, LineRange{}, LineRange{First: -4, Last: -1}.Normalize())
}

func TestPixelsClampAndDetach(t *testing.T) {
	v := NewPixels(400)
	v.SetContentHeight(1000)

	v.SetScrollTop(900)
	assert.InDelta(t, 600.0, v.ScrollTop(), 1e-9)
	assert.InDelta(t, 800.0, v.Center(), 1e-9)

	v.Detach()
	v.SetScrollTop(0)
	assert.InDelta(t, 600.0, v.ScrollTop(), 1e-9, "detached container ignores scrolls")
	assert.Equal(t, 1, v.Mutations())

	v.Attach()
	v.SetScrollTop(0)
	assert.Zero(t, v.ScrollTop())
}

func TestPixelsOnScroll(t *testing.T) {
	v := NewPixels(100)
	v.SetContentHeight(1000)
	var tops []float64
	v.OnScroll(func(top float64) { tops = append(tops, top) })

	v.SetScrollTop(50)
	v.SetScrollTop(50)
	v.SetScrollTop(-500)
	assert.Equal(t, []float64{50, 0}, tops)
}

func TestPixelsContentShrink(t *testing.T) {
	v := NewPixels(100)
	v.SetContentHeight(1000)
	v.SetScrollTop(800)
	v.SetContentHeight(300)
	assert.InDelta(t, 200.0, v.ScrollTop(), 1e-9)

	v.Resize(500)
	assert.Zero(t, v.ScrollTop())
}

func TestLinesResize(t *testing.T) {
	v := NewLines(10, 100)
	v.ScrollTo(90)
	assert.Equal(t, 90, v.TopLine())

	v.Resize(30)
	assert.Equal(t, 70, v.TopLine(), "taller viewport pulls the top back")
	assert.Equal(t, LineRange{First: 70, Last: 99}, v.VisibleRange())

	v.Resize(0)
	assert.InDelta(t, 1.0, v.Height(), 1e-9)
}
