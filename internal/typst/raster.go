package typst

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
)

// DefaultPPI is the raster resolution in pixels per inch.
const DefaultPPI = 144

// pointsPerInch converts PPI to pixels per typst point.
const pointsPerInch = 72

// Rasterizer renders the pages of a compiled document to PNG and reports
// their pixel heights.
type Rasterizer struct {
	binary string
	ppi    float64
	runner Runner
	log    logr.Logger
}

// NewRasterizer creates a rasterizer. A non-positive ppi selects DefaultPPI.
func NewRasterizer(binary string, ppi float64, runner Runner, log logr.Logger) *Rasterizer {
	if binary == "" {
		binary = DefaultBinary
	}
	if ppi <= 0 {
		ppi = DefaultPPI
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Rasterizer{binary: binary, ppi: ppi, runner: runner, log: log.WithName("raster")}
}

// Scale returns pixels per typst point.
func (r *Rasterizer) Scale() float64 {
	return r.ppi / pointsPerInch
}

// PageMetrics rasterizes the document whose PDF is artifact. The typst
// source next to the artifact is compiled again with PNG output.
func (r *Rasterizer) PageMetrics(ctx context.Context, artifact string) ([]anchor.PageMetric, error) {
	dir := filepath.Dir(artifact)
	stale, _ := filepath.Glob(filepath.Join(dir, "page-*.png"))
	for _, f := range stale {
		_ = os.Remove(f)
	}

	ppi := strconv.FormatFloat(r.ppi, 'f', -1, 64)
	if _, err := r.runner.Run(ctx, dir, r.binary, "compile", "--root", dir, "--format", "png", "--ppi", ppi, mainFile, pagePattern); err != nil {
		return nil, fmt.Errorf("typst rasterize: %w", err)
	}
	return ReadPageMetrics(dir, r.Scale())
}

// ReadPageMetrics reads page-N.png files in dir, in page order.
func ReadPageMetrics(dir string, scale float64) ([]anchor.PageMetric, error) {
	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}

	type page struct {
		num  int
		path string
	}
	pages := make([]page, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), "page-"), ".png")
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		pages = append(pages, page{num: n, path: f})
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	metrics := make([]anchor.PageMetric, 0, len(pages))
	for i, p := range pages {
		h, err := pngHeight(p.path)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, anchor.PageMetric{Index: i, PixelHeight: float64(h), Scale: scale})
	}
	return metrics, nil
}

func pngHeight(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return cfg.Height, nil
}
