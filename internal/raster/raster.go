package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/common"
	"github.com/prepforge/exam-pipeline/internal/entity"
)

// Config for the rasterizer.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // target resolution; default 200
	MaxPages int    // 0 = no limit
}

// Rasterizer converts a PDF into an ordered sequence of page images by
// shelling out to pdftoppm.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = constants.RasterDPIDefault
	}
	return &Rasterizer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner overrides the command runner (e.g., for tests).
func (r *Rasterizer) WithRunner(rn Runner) *Rasterizer {
	if rn != nil {
		r.runner = rn
	}
	return r
}

var pageIndexRe = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize renders every page of the document at the configured DPI.
// An empty document yields an empty sequence; a corrupt document yields
// ErrRasterization, which is fatal to the whole pipeline.
func (r *Rasterizer) Rasterize(ctx context.Context, path string) ([]entity.PageImage, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "exam-raster-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", common.ErrRasterization, err)
	}
	defer func(dir string) {
		if rerr := os.RemoveAll(dir); rerr != nil {
			r.logger.Warn("raster.cleanup_error", "dir", dir, "error", rerr)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", strconv.Itoa(r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v: %s", common.ErrRasterization, err, truncate(string(errb), 2<<10))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool {
		return pageIndexOf(matches[i]) < pageIndexOf(matches[j])
	})
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}

	pages := make([]entity.PageImage, 0, len(matches))
	for i, img := range matches {
		data, err := os.ReadFile(img)
		if err != nil {
			return nil, fmt.Errorf("%w: read page %d: %v", common.ErrRasterization, i+1, err)
		}
		pages = append(pages, entity.PageImage{PageNumber: i + 1, PNG: data})
	}

	r.logger.Info("raster.ok",
		"path", path,
		"pages", len(pages),
		"dpi", r.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func pageIndexOf(path string) int {
	m := pageIndexRe.FindStringSubmatch(path)
	if len(m) != 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
