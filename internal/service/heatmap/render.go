package heatmap

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	frameWidth  = 16 // inches
	frameHeight = 9  // inches
	renderDPI   = 100
	paletteSize = 256
)

// FrameSize fits the data aspect ratio inside a 16:9 frame.
func FrameSize(b Bounds) (vg.Length, vg.Length) {
	aspect := b.Aspect()
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}

	if aspect > float64(frameWidth)/float64(frameHeight) {
		return frameWidth * vg.Inch, vg.Length(frameWidth/aspect) * vg.Inch
	}
	return vg.Length(frameHeight*aspect) * vg.Inch, frameHeight * vg.Inch
}

// logGrid exposes a smoothed histogram to plotter.HeatMap on a log10 scale.
// Cells at or below zero are NaN and render as background.
type logGrid struct {
	h      [][]float64
	b      Bounds
	vmin   float64
	vmax   float64
	dx, dy float64
}

func newLogGrid(h [][]float64, b Bounds) *logGrid {
	vmax := Max(h)
	vmin := math.Max(1, vmax*0.01)
	if vmax < vmin {
		vmax = vmin
	}

	rows, cols := len(h), len(h[0])
	return &logGrid{
		h:    h,
		b:    b,
		vmin: vmin,
		vmax: vmax,
		dx:   (b.XMax - b.XMin) / float64(cols),
		dy:   (b.YMax - b.YMin) / float64(rows),
	}
}

func (g *logGrid) Dims() (c, r int) { return len(g.h[0]), len(g.h) }

func (g *logGrid) Z(c, r int) float64 {
	v := g.h[r][c]
	if v <= 0 {
		return math.NaN()
	}
	return math.Log10(math.Min(math.Max(v, g.vmin), g.vmax))
}

func (g *logGrid) X(c int) float64 { return g.b.XMin + (float64(c)+0.5)*g.dx }
func (g *logGrid) Y(r int) float64 { return g.b.YMin + (float64(r)+0.5)*g.dy }

// Render draws the smoothed histogram as a borderless false-color PNG at path.
func Render(h [][]float64, b Bounds, path string) error {
	if len(h) == 0 || len(h[0]) == 0 {
		return fmt.Errorf("empty histogram")
	}
	grid := newLogGrid(h, b)

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.White

	hm := plotter.NewHeatMap(grid, jetPalette(paletteSize))
	hm.Min = math.Log10(grid.vmin)
	hm.Max = math.Log10(grid.vmax)
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	hm.NaN = color.White
	p.Add(hm)

	p.X.Min, p.X.Max = b.XMin, b.XMax
	p.Y.Min, p.Y.Max = b.YMin, b.YMax

	w, ht := FrameSize(b)
	c := vgimg.NewWith(vgimg.UseWH(w, ht), vgimg.UseDPI(renderDPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Close()
}

// jet is the classic blue-cyan-yellow-red colormap.
type jet []color.Color

func (j jet) Colors() []color.Color { return j }

func jetPalette(n int) jet {
	r := [][2]float64{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}}
	g := [][2]float64{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}}
	bl := [][2]float64{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}}

	colors := make(jet, n)
	for i := range colors {
		t := float64(i) / float64(n-1)
		colors[i] = color.NRGBA{
			R: uint8(math.Round(255 * segment(r, t))),
			G: uint8(math.Round(255 * segment(g, t))),
			B: uint8(math.Round(255 * segment(bl, t))),
			A: 255,
		}
	}
	return colors
}

// segment linearly interpolates t over sorted (position, value) anchors.
func segment(anchors [][2]float64, t float64) float64 {
	for i := 1; i < len(anchors); i++ {
		a, b := anchors[i-1], anchors[i]
		if t <= b[0] {
			if b[0] == a[0] {
				return b[1]
			}
			return a[1] + (t-a[0])/(b[0]-a[0])*(b[1]-a[1])
		}
	}
	return anchors[len(anchors)-1][1]
}
