package dicom

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicombids/internal/dicom/dicomtest"
)

func seriesFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestReadHeader_Bold(t *testing.T) {
	dir := dicomtest.Write(t, filepath.Join(t.TempDir(), "RESTING_0005"), dicomtest.Bold("Resting", 2, 3))

	h, err := ReadHeader(dir, seriesFiles(t, dir))
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if !h.HasSequence("EP") {
		t.Errorf("HasSequence(EP) = false, ScanningSequence = %v", h.ScanningSequence)
	}
	if h.SeriesDescription != "Resting" {
		t.Errorf("SeriesDescription = %q, want Resting", h.SeriesDescription)
	}
	if h.EchoNumber != 2 {
		t.Errorf("EchoNumber = %d, want 2", h.EchoNumber)
	}
	if h.Physio {
		t.Error("Physio = true for an imaging series")
	}
	if !h.HasProtocol || h.Repetitions != 3 || h.Contrasts != 3 {
		t.Errorf("protocol = %v/%d/%d, want true/3/3", h.HasProtocol, h.Repetitions, h.Contrasts)
	}
	if !h.MultiEcho() {
		t.Error("MultiEcho() = false, want true")
	}
	if h.Incomplete(4) {
		t.Error("Incomplete(4) = true with 3 repetitions")
	}
	if !h.Incomplete(3) {
		t.Error("Incomplete(3) = false with 3 repetitions")
	}
	if got := h.ImageKind(); got != "mag" {
		t.Errorf("ImageKind() = %q, want mag", got)
	}
	if v, ok := h.Lookup(tag.Manufacturer); !ok || v != "SIEMENS" {
		t.Errorf("Lookup(Manufacturer) = %q, %v", v, ok)
	}
	if filepath.Base(h.SampleFile) != "IM0001.dcm" {
		t.Errorf("SampleFile = %s, want the first file", h.SampleFile)
	}
}

func TestReadHeader_Physio(t *testing.T) {
	dir := dicomtest.Write(t, filepath.Join(t.TempDir(), "PHYSIO_0007"), dicomtest.Physio("Resting_PhysioLog"))

	h, err := ReadHeader(dir, seriesFiles(t, dir))
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if !h.Physio {
		t.Error("Physio = false, want true")
	}
	if h.EchoNumber != 0 {
		t.Errorf("EchoNumber = %d, want 0", h.EchoNumber)
	}
	if h.HasProtocol || h.Incomplete(1) {
		t.Error("physio series reported a protocol")
	}
}

func TestReadHeader_PhaseFieldmap(t *testing.T) {
	dir := dicomtest.Write(t, filepath.Join(t.TempDir(), "FMAP_0010"), dicomtest.Fieldmap("P", 2))

	h, err := ReadHeader(dir, seriesFiles(t, dir))
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if got := h.ImageKind(); got != "phase" {
		t.Errorf("ImageKind() = %q, want phase", got)
	}
	if h.SequenceName != "*fm2d2r" {
		t.Errorf("SequenceName = %q", h.SequenceName)
	}
	if h.MultiEcho() {
		t.Error("MultiEcho() = true without a protocol")
	}
}

func TestReadHeader_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadHeader(dir, nil); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("ReadHeader(no files) error = %v, want ErrEmptySeries", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadHeader(dir, []string{"notes.txt"}); err == nil {
		t.Error("ReadHeader(text file) error = nil")
	}
}
