package preview

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func ramp(w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(1000 + x*10)})
		}
	}
	return img
}

func TestRender_WindowsAndScales(t *testing.T) {
	out := Render(ramp(64, 32), "", 128)

	if got := out.Bounds(); got != image.Rect(0, 0, 128, 128) {
		t.Fatalf("bounds = %v, want 128x128", got)
	}
	// 64x32 fits as 128x64, centred vertically
	if v := out.GrayAt(64, 10).Y; v != 0 {
		t.Errorf("letterbox pixel = %d, want 0", v)
	}
	left, right := out.GrayAt(1, 64).Y, out.GrayAt(126, 64).Y
	if left > 10 || right < 245 {
		t.Errorf("window not stretched: left=%d right=%d", left, right)
	}
}

func TestRender_FlatImage(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 8, 8))
	out := Render(img, "", 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if out.GrayAt(x, y).Y != 0 {
				t.Fatalf("flat image pixel (%d,%d) = %d, want 0", x, y, out.GrayAt(x, y).Y)
			}
		}
	}
}

func TestRender_Label(t *testing.T) {
	plain := Render(ramp(32, 32), "", 64)
	labelled := Render(ramp(32, 32), "T1w", 64)

	changed := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if plain.GrayAt(x, y) != labelled.GrayAt(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("label did not change any pixel")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previews", "sub-01_ses-01_T1w.png")
	if err := WriteFile(path, Render(ramp(16, 16), "T1w", 32)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("width = %d, want 32", img.Bounds().Dx())
	}
}
