package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/v0xg/domlens/internal/wrapper"
)

// Options configures screenshot annotation
type Options struct {
	Color     color.RGBA
	Thickness int
	Origin    wrapper.Point // document position of the screenshot's top-left pixel
	MaxWidth  uint          // thumbnail width, zero keeps the original size
}

// DefaultColor matches the default in-page marker color
var DefaultColor = color.RGBA{255, 0, 0, 255}

// Annotate returns a copy of frame with an outline around every rect.
// Rects are in document coordinates and shifted by opts.Origin.
func Annotate(frame image.Image, rects []wrapper.Rect, opts Options) *image.RGBA {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	thickness := opts.Thickness
	if thickness < 1 {
		thickness = 1
	}
	c := opts.Color
	if c.A == 0 {
		c = DefaultColor
	}

	for _, r := range rects {
		x1 := bounds.Min.X + int(r.X-opts.Origin.X)
		y1 := bounds.Min.Y + int(r.Y-opts.Origin.Y)
		x2 := x1 + int(r.Width)
		y2 := y1 + int(r.Height)
		for i := 0; i < thickness; i++ {
			drawOutline(result, x1-i, y1-i, x2+i, y2+i, c)
		}
	}

	return result
}

// Thumbnail scales img down to maxWidth keeping the aspect ratio. Images that
// are already narrow enough are returned unchanged.
func Thumbnail(img image.Image, maxWidth uint) image.Image {
	bounds := img.Bounds()
	if maxWidth == 0 || uint(bounds.Dx()) <= maxWidth {
		return img
	}
	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	height := uint(float64(maxWidth) * aspectRatio)
	return resize.Resize(maxWidth, height, img, resize.Lanczos3)
}

// AnnotateFile reads the PNG at src, outlines rects, optionally shrinks the
// result and writes it to dst as PNG.
func AnnotateFile(src, dst string, rects []wrapper.Rect, opts Options) error {
	frame, err := ReadPNG(src)
	if err != nil {
		return err
	}
	out := Thumbnail(Annotate(frame, rects, opts), opts.MaxWidth)
	return WritePNG(dst, out)
}

// ReadPNG decodes the PNG at path
func ReadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawOutline(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	drawLine(img, x1, y1, x2, y1, c)
	drawLine(img, x2, y1, x2, y2, c)
	drawLine(img, x2, y2, x1, y2, c)
	drawLine(img, x1, y2, x1, y1, c)
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
