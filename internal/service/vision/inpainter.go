// Package vision holds the OpenCV-backed image post-processing.
package vision

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"petwatch/internal/logger"
)

const (
	// WhiteThreshold marks pixels brighter than this gray level as background.
	WhiteThreshold = 230
	// MaskKernelSize is the side of the square dilation kernel.
	MaskKernelSize = 5
	// MaskIterations is how many times the background mask is dilated.
	MaskIterations = 2
	// InpaintRadius is the neighborhood used by Telea inpainting.
	InpaintRadius = 3
)

// Inpainter fills near-white plot background with surrounding color.
type Inpainter struct {
	logger *logger.Logger
}

// NewInpainter creates an Inpainter.
func NewInpainter(logger *logger.Logger) *Inpainter {
	return &Inpainter{logger: logger}
}

// Clean reads the image at path, inpaints its near-white regions and
// returns the result encoded as PNG.
func (i *Inpainter) Clean(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("intermediate image not readable: %w", err)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to load image %s", path)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, WhiteThreshold, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(MaskKernelSize, MaskKernelSize))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.DilateWithParams(mask, &dilated, kernel, image.Pt(-1, -1), MaskIterations, gocv.BorderConstant, color.RGBA{})
	if dilated.Empty() {
		return nil, fmt.Errorf("failed to dilate background mask")
	}

	masked := gocv.CountNonZero(dilated)
	i.logger.Info("Inpainting %d background pixels of %dx%d image", masked, img.Cols(), img.Rows())

	result := gocv.NewMat()
	defer result.Close()
	if masked == 0 {
		img.CopyTo(&result)
	} else {
		gocv.Inpaint(img, dilated, &result, InpaintRadius, gocv.Telea)
	}
	if result.Empty() {
		return nil, fmt.Errorf("inpaint produced an empty image")
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
