// Package dicom samples the DICOM files of a series directory.
//
// Only the attributes needed to decide where a series goes in a BIDS dataset
// are read; pixel data is skipped unless a preview frame is requested.
package dicom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	// ErrEmptySeries is returned for a series directory without files.
	ErrEmptySeries = errors.New("series directory has no files")
	// ErrNotDICOM is returned when the sampled file cannot be parsed as DICOM.
	ErrNotDICOM = errors.New("file is not a DICOM")
	// ErrIncompleteHeader is returned when the sample lacks the attributes needed
	// to classify the series, including ImageType.
	ErrIncompleteHeader = errors.New("DICOM header lacks classification attributes")
)

// Header holds the attributes of one sampled file of a series.
type Header struct {
	SampleFile        string
	ScanningSequence  []string
	SequenceVariant   []string
	SequenceName      string
	SeriesDescription string
	ProtocolName      string
	ImageType         []string
	EchoNumber        int
	SeriesNumber      int
	Manufacturer      string

	// Physio is set for physiological log series, which carry an ImageType
	// but none of the imaging attributes.
	Physio bool

	// From the Siemens ASCCONV protocol, when present.
	HasProtocol bool
	Repetitions int
	Contrasts   int

	dataset dicom.Dataset
}

// ReadHeader parses the first file (in the given order) of a series directory.
// Picking a fixed sample keeps repeated runs identical.
func ReadHeader(dir string, files []string) (Header, error) {
	if len(files) == 0 {
		return Header{}, ErrEmptySeries
	}
	sample := filepath.Join(dir, files[0])

	ds, err := dicom.ParseFile(sample, nil, dicom.SkipPixelData())
	if err != nil {
		return Header{}, fmt.Errorf("%w: %s: %v", ErrNotDICOM, sample, err)
	}

	h := Header{SampleFile: sample, dataset: ds, Contrasts: 1}

	var missing []string
	if h.ScanningSequence = stringValues(ds, tag.ScanningSequence); len(h.ScanningSequence) == 0 {
		missing = append(missing, "ScanningSequence")
	}
	echo := firstValue(ds, tag.EchoNumbers)
	if echo == "" {
		missing = append(missing, "EchoNumbers")
	}
	if h.SeriesDescription = firstValue(ds, tag.SeriesDescription); h.SeriesDescription == "" {
		missing = append(missing, "SeriesDescription")
	}
	if h.SequenceName = firstValue(ds, tag.SequenceName); h.SequenceName == "" {
		missing = append(missing, "SequenceName")
	}
	h.ImageType = stringValues(ds, tag.ImageType)
	if len(h.ImageType) == 0 {
		return Header{}, fmt.Errorf("%w: %s: missing ImageType", ErrIncompleteHeader, sample)
	}

	h.SequenceVariant = stringValues(ds, tag.SequenceVariant)
	h.ProtocolName = firstValue(ds, tag.ProtocolName)
	h.Manufacturer = firstValue(ds, tag.Manufacturer)
	h.EchoNumber = atoiDefault(echo, 1)
	h.SeriesNumber = atoiDefault(firstValue(ds, tag.SeriesNumber), 0)
	h.Physio = len(missing) > 0 || slices.Contains(h.ImageType, "PHYSIO")
	if h.Physio {
		h.EchoNumber = 0
	}

	raw, err := os.ReadFile(sample)
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", sample, err)
	}
	proto := ParseProtocol(raw)
	h.HasProtocol = proto.Found()
	h.Repetitions = proto.Repetitions()
	h.Contrasts = proto.Contrasts()

	return h, nil
}

// HasSequence reports whether the ScanningSequence includes code (e.g. "EP", "GR", "IR").
func (h Header) HasSequence(code string) bool {
	return slices.Contains(h.ScanningSequence, code)
}

// MultiEcho reports whether the protocol planned more than one echo.
func (h Header) MultiEcho() bool {
	return h.Contrasts > 1
}

// Incomplete reports whether fewer files than planned repetitions were exported,
// which happens when a scan is aborted. Without a protocol nothing is known.
func (h Header) Incomplete(numFiles int) bool {
	if !h.HasProtocol {
		return false
	}
	return h.Repetitions+1 > numFiles
}

// ImageKind returns "mag", "phase" or "" from the ImageType values.
func (h Header) ImageKind() string {
	for _, v := range h.ImageType {
		switch strings.ToUpper(v) {
		case "M", "MAGNITUDE":
			return "mag"
		case "P", "PHASE":
			return "phase"
		}
	}
	return ""
}

// Lookup returns the value of any tag of the sampled file as text.
func (h Header) Lookup(t tag.Tag) (string, bool) {
	elem, err := h.dataset.FindElementByTag(t)
	if err != nil || elem == nil {
		return "", false
	}
	if vals, ok := elem.Value.GetValue().([]string); ok {
		return strings.Join(trimAll(vals), `\`), true
	}
	return strings.Trim(elem.Value.String(), " []"), true
}

func stringValues(ds dicom.Dataset, t tag.Tag) []string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return nil
	}
	vals, ok := elem.Value.GetValue().([]string)
	if !ok {
		return nil
	}
	out := trimAll(vals)
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstValue(ds dicom.Dataset, t tag.Tag) string {
	vals := stringValues(ds, t)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func trimAll(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.Trim(v, " \x00")
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
