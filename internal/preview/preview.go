// Package preview renders one slice of a series as a labelled PNG thumbnail,
// so a mapping can be checked by eye before conversion.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultSize is the edge of the square previews written by the CLI.
const DefaultSize = 256

// Render windows img to its own min/max range, scales it into a size x size
// square keeping its aspect ratio, and burns label into the top-left corner.
func Render(img image.Image, label string, size int) *image.Gray {
	if size <= 0 {
		size = DefaultSize
	}
	gray := window(img)

	dst := image.NewGray(image.Rect(0, 0, size, size))
	sb := gray.Bounds()
	w, h := size, size
	if sb.Dx() > sb.Dy() {
		h = max(1, size*sb.Dy()/sb.Dx())
	} else if sb.Dy() > sb.Dx() {
		w = max(1, size*sb.Dx()/sb.Dy())
	}
	target := image.Rect((size-w)/2, (size-h)/2, (size-w)/2+w, (size-h)/2+h)
	draw.BiLinear.Scale(dst, target, gray, sb, draw.Src, nil)

	if label != "" {
		drawLabel(dst, label)
	}
	return dst
}

// window maps the value range of img linearly onto 0..255.
func window(img image.Image) *image.Gray {
	b := img.Bounds()
	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	span := float64(hi) - float64(lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if span == 0 {
				continue
			}
			v := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8((float64(v) - float64(lo)) / span * 255)})
		}
	}
	return out
}

// drawLabel draws white text with a black outline, scaled up on large previews.
func drawLabel(dst *image.Gray, text string) {
	face := basicfont.Face7x13
	baseWidth := font.MeasureString(face, text).Ceil()
	baseHeight := 13
	if baseWidth == 0 {
		return
	}

	textImg := image.NewAlpha(image.Rect(0, 0, baseWidth, baseHeight))
	drawer := &font.Drawer{
		Dst:  textImg,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(11)},
	}
	drawer.DrawString(text)

	bounds := dst.Bounds()
	scale := 1
	if bounds.Dx() >= 512 {
		scale = 2
	}
	scaledW, scaledH := baseWidth*scale, baseHeight*scale
	scaled := image.NewAlpha(image.Rect(0, 0, scaledW, scaledH))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), textImg, textImg.Bounds(), draw.Src, nil)

	const margin = 4
	outline := scale
	set := func(x, y int, c color.Gray) {
		p := image.Pt(x, y)
		if p.In(bounds) {
			dst.SetGray(x, y, c)
		}
	}
	for dx := -outline; dx <= outline; dx++ {
		for dy := -outline; dy <= outline; dy++ {
			for sy := 0; sy < scaledH; sy++ {
				for sx := 0; sx < scaledW; sx++ {
					if scaled.AlphaAt(sx, sy).A > 0 {
						set(margin+sx+dx, margin+sy+dy, color.Gray{Y: 0})
					}
				}
			}
		}
	}
	for sy := 0; sy < scaledH; sy++ {
		for sx := 0; sx < scaledW; sx++ {
			if a := scaled.AlphaAt(sx, sy).A; a > 0 {
				set(margin+sx, margin+sy, color.Gray{Y: a})
			}
		}
	}
}

// WriteFile encodes img as PNG at path, creating parent directories.
func WriteFile(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preview directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode preview %s: %w", path, err)
	}
	return f.Close()
}
