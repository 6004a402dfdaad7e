package dicom

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mrsinham/dicombids/internal/dicom/dicomtest"
)

func TestLoadFrame(t *testing.T) {
	s := dicomtest.T1w()
	s.Files = 1
	s.Pixels = true
	s.Rows, s.Cols = 24, 40
	dir := dicomtest.Write(t, filepath.Join(t.TempDir(), "T1_0002"), s)

	img, err := LoadFrame(filepath.Join(dir, "IM0001.dcm"))
	if err != nil {
		t.Fatalf("LoadFrame() error = %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 40 || b.Dy() != 24 {
		t.Errorf("bounds = %v, want 40x24", b)
	}
}

func TestLoadFrame_NoPixels(t *testing.T) {
	s := dicomtest.T1w()
	s.Files = 1
	dir := dicomtest.Write(t, filepath.Join(t.TempDir(), "T1_0002"), s)

	_, err := LoadFrame(filepath.Join(dir, "IM0001.dcm"))
	if !errors.Is(err, ErrNoPixelData) {
		t.Errorf("LoadFrame() error = %v, want ErrNoPixelData", err)
	}
}
