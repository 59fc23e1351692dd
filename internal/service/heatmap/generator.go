package heatmap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"petwatch/internal/logger"
	"petwatch/internal/model"
)

var (
	ErrInsufficientData = errors.New("insufficient landmark data")
	ErrRenderFailed     = errors.New("heatmap render failed")
)

// Cleaner removes plot background artifacts from a rendered PNG and
// returns the final encoded image.
type Cleaner interface {
	Clean(path string) ([]byte, error)
}

// Generator runs the histogram, smoothing, render and clean-up pipeline.
type Generator struct {
	tempRoot string
	cleaner  Cleaner
	logger   *logger.Logger
}

// NewGenerator creates a Generator. tempRoot is the parent of per-render
// temp dirs; empty uses the OS default. A nil cleaner returns the raw render.
func NewGenerator(tempRoot string, cleaner Cleaner, logger *logger.Logger) *Generator {
	return &Generator{tempRoot: tempRoot, cleaner: cleaner, logger: logger}
}

// Generate returns PNG bytes of the density map of records.
// It returns ErrInsufficientData below MinPoints valid landmarks and
// ErrRenderFailed for any pipeline fault. Intermediate files are always removed.
func (g *Generator) Generate(records []model.DetectionRecord) (out []byte, err error) {
	points := ExtractPoints(records)
	g.logger.Info("Heatmap: %d records, %d valid landmarks", len(records), len(points))

	if len(points) < MinPoints {
		g.logger.Warning("Not enough landmarks for heatmap: %d < %d", len(points), MinPoints)
		return nil, ErrInsufficientData
	}

	dir, err := os.MkdirTemp(g.tempRoot, "heatmap_"+uuid.NewString()+"_")
	if err != nil {
		g.logger.Error("Failed to create heatmap temp dir: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			g.logger.Error("Failed to remove %s: %v", dir, rmErr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Heatmap pipeline panicked: %v", r)
			out, err = nil, fmt.Errorf("%w: %v", ErrRenderFailed, r)
		}
	}()

	bounds := ComputeBounds(points)
	g.logger.Info("Heatmap bounds: X(%.1f~%.1f) Y(%.1f~%.1f)", bounds.XMin, bounds.XMax, bounds.YMin, bounds.YMax)

	smoothed := GaussianSmooth(Histogram2D(points, bounds, Bins), Sigma)

	intermediate := filepath.Join(dir, "heatmap_intermediate.png")
	if err := Render(smoothed, bounds, intermediate); err != nil {
		g.logger.Error("Heatmap render failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	if g.cleaner == nil {
		data, err := os.ReadFile(intermediate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
		return data, nil
	}

	data, err := g.cleaner.Clean(intermediate)
	if err != nil {
		g.logger.Error("Heatmap clean-up failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return data, nil
}
