// Package heatmap renders landmark occupancy density maps.
package heatmap

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"petwatch/internal/model"
)

const (
	// MinPoints is the fewest valid landmarks a density map is drawn from.
	MinPoints = 10
	// Bins is the histogram resolution on each axis.
	Bins = 50
	// Sigma is the Gaussian smoothing width in bins.
	Sigma = 1.2

	lowerQuantile = 0.01
	upperQuantile = 0.99
)

// ExtractPoints collects landmarks of the first subject of every record,
// dropping zero-sentinel coordinates.
func ExtractPoints(records []model.DetectionRecord) []model.Point {
	var points []model.Point
	for _, rec := range records {
		for _, kp := range rec.Keypoints {
			if kp.X > 0 && kp.Y > 0 {
				points = append(points, model.Point{X: kp.X, Y: kp.Y})
			}
		}
	}
	return points
}

// Bounds is the clipped data extent the histogram is built over.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Aspect is width over height of the extent.
func (b Bounds) Aspect() float64 {
	return (b.XMax - b.XMin) / (b.YMax - b.YMin)
}

// ComputeBounds takes the 1st and 99th percentile of each axis. A zero-width
// axis is widened by half a unit on each side.
func ComputeBounds(points []model.Point) Bounds {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	xmin, xmax := percentiles(xs)
	ymin, ymax := percentiles(ys)
	return Bounds{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}
}

func percentiles(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 1
	}
	sort.Float64s(v)
	lo := stat.Quantile(lowerQuantile, stat.LinInterp, v, nil)
	hi := stat.Quantile(upperQuantile, stat.LinInterp, v, nil)
	if hi-lo <= 0 || math.IsNaN(hi-lo) {
		mid := (lo + hi) / 2
		return mid - 0.5, mid + 0.5
	}
	return lo, hi
}

// Histogram2D counts points into a bins×bins grid indexed [row=y][col=x].
// Points outside b are ignored; points on the upper edge go in the last bin.
func Histogram2D(points []model.Point, b Bounds, bins int) [][]float64 {
	h := make([][]float64, bins)
	for i := range h {
		h[i] = make([]float64, bins)
	}

	dx := (b.XMax - b.XMin) / float64(bins)
	dy := (b.YMax - b.YMin) / float64(bins)

	for _, p := range points {
		if p.X < b.XMin || p.X > b.XMax || p.Y < b.YMin || p.Y > b.YMax {
			continue
		}
		col := binIndex(p.X-b.XMin, dx, bins)
		row := binIndex(p.Y-b.YMin, dy, bins)
		h[row][col]++
	}
	return h
}

func binIndex(offset, width float64, bins int) int {
	i := int(offset / width)
	if i >= bins {
		i = bins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// GaussianSmooth applies a separable Gaussian filter truncated at 4σ with
// mirrored (half-sample symmetric) boundaries.
func GaussianSmooth(h [][]float64, sigma float64) [][]float64 {
	rows := len(h)
	if rows == 0 || sigma <= 0 {
		return h
	}
	cols := len(h[0])
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		tmp[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * h[r][reflect(c+k, cols)]
			}
			tmp[r][c] = sum
		}
	}

	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * tmp[reflect(r+k, rows)][c]
			}
			out[r][c] = sum
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect maps i into [0, n) as d c b a | a b c d | d c b a.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// Max returns the largest cell value.
func Max(h [][]float64) float64 {
	var m float64
	for _, row := range h {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}
