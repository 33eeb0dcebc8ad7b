package gifgen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// DefaultFrameDelay is how long each trace frame stays on screen
const DefaultFrameDelay = 800 * time.Millisecond

// Options configures trace encoding
type Options struct {
	FrameDelay time.Duration
	MaxWidth   uint // zero keeps the width of the first frame
}

// Encode writes frames to w as a looping GIF. Every frame is scaled to the
// size of the first one so the GIF has a single logical screen.
func Encode(w io.Writer, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}

	// GIF delays are in 100ths of a second
	delay := int(opts.FrameDelay / (10 * time.Millisecond))
	if delay <= 0 {
		delay = int(DefaultFrameDelay / (10 * time.Millisecond))
	}

	width, height := outputSize(frames[0].Bounds(), opts.MaxWidth)

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}

	pal := palette(frames[0])
	for i, frame := range frames {
		scaled := frame
		if b := frame.Bounds(); uint(b.Dx()) != width || uint(b.Dy()) != height {
			scaled = resize.Resize(width, height, frame, resize.Lanczos3)
		}

		bounds := image.Rect(0, 0, int(width), int(height))
		paletted := image.NewPaletted(bounds, pal)
		draw.FloydSteinberg.Draw(paletted, bounds, scaled, scaled.Bounds().Min)

		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	return gif.EncodeAll(w, g)
}

// WriteFile encodes frames to path and returns the size of the written file
func WriteFile(path string, frames []image.Image, opts Options) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := Encode(f, frames, opts); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func outputSize(bounds image.Rectangle, maxWidth uint) (uint, uint) {
	width := uint(bounds.Dx())
	if maxWidth == 0 || width <= maxWidth {
		return width, uint(bounds.Dy())
	}
	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	return maxWidth, uint(float64(maxWidth) * aspectRatio)
}

// palette builds a 256-color palette from the most frequent colors of img
func palette(img image.Image) color.Palette {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)

	// every 4th pixel is enough for page screenshots
	step := 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}]++
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, colorCount{c, n})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].count != colors[j].count {
			return colors[i].count > colors[j].count
		}
		return rgbaKey(colors[i].c) < rgbaKey(colors[j].c)
	})

	pal := make(color.Palette, 0, 256)
	pal = append(pal, color.RGBA{0, 0, 0, 0})
	for i := 0; i < len(colors) && len(pal) < 256; i++ {
		pal = append(pal, colors[i].c)
	}
	// pad with grayscale
	for len(pal) < 256 {
		gray := uint8(len(pal))
		pal = append(pal, color.RGBA{gray, gray, gray, 255})
	}
	return pal
}

func rgbaKey(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}
