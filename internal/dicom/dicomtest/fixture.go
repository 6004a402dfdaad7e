// Package dicomtest writes small synthetic MR series for tests.
package dicomtest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	mrImageStorage = "1.2.840.10008.5.1.4.1.1.4"
	explicitVRLE   = "1.2.840.10008.1.2.1"
	uidRoot        = "1.2.826.0.1.3680043.8.498"
)

// Series describes the header of every file written for one series directory.
type Series struct {
	ScanningSequence  []string
	SequenceVariant   []string
	SequenceName      string
	SeriesDescription string
	ProtocolName      string
	ImageType         []string
	EchoNumber        int // 0 omits EchoNumbers
	SeriesNumber      int
	Manufacturer      string

	// Files is the number of files written, at least one.
	Files int

	// Protocol embeds a Siemens ASCCONV block with Repetitions and Contrasts.
	Protocol    bool
	Repetitions int
	Contrasts   int

	// Pixels adds a Rows x Cols 16-bit frame. Sizes default to 32.
	Pixels bool
	Rows   int
	Cols   int
}

// T1w returns an MPRAGE-like anatomical series.
func T1w() Series {
	return Series{
		ScanningSequence:  []string{"GR", "IR"},
		SequenceVariant:   []string{"SK", "SP", "MP"},
		SequenceName:      "*tfl3d1_16ns",
		SeriesDescription: "T1_MPRAGE",
		ImageType:         []string{"ORIGINAL", "PRIMARY", "M", "ND", "NORM"},
		EchoNumber:        1,
		Files:             3,
	}
}

// Bold returns an echo-planar functional series.
func Bold(description string, echo, contrasts int) Series {
	return Series{
		ScanningSequence:  []string{"EP"},
		SequenceVariant:   []string{"SK", "SS"},
		SequenceName:      "epfid2d1_64",
		SeriesDescription: description,
		ImageType:         []string{"ORIGINAL", "PRIMARY", "M", "MB", "ND", "MOSAIC"},
		EchoNumber:        echo,
		Files:             4,
		Protocol:          true,
		Repetitions:       3,
		Contrasts:         contrasts,
	}
}

// Fieldmap returns a dual-echo gradient echo field map series; kind is "M" or "P".
func Fieldmap(kind string, echo int) Series {
	return Series{
		ScanningSequence:  []string{"GR"},
		SequenceVariant:   []string{"SP"},
		SequenceName:      "*fm2d2r",
		SeriesDescription: "gre_field_mapping",
		ImageType:         []string{"ORIGINAL", "PRIMARY", kind, "ND"},
		EchoNumber:        echo,
		Files:             2,
	}
}

// T2star returns a 3D multi-echo gradient echo series.
func T2star(kind string, echo int) Series {
	return Series{
		ScanningSequence:  []string{"GR"},
		SequenceVariant:   []string{"SP"},
		SequenceName:      "*fl3d11r",
		SeriesDescription: "gre_T2star",
		ImageType:         []string{"ORIGINAL", "PRIMARY", kind, "ND"},
		EchoNumber:        echo,
		Files:             2,
	}
}

// Diffusion returns a diffusion-weighted echo-planar series.
func Diffusion() Series {
	return Series{
		ScanningSequence:  []string{"EP"},
		SequenceVariant:   []string{"SK", "SP"},
		SequenceName:      "*ep_b1000#1",
		SeriesDescription: "ep2d_diff",
		ImageType:         []string{"ORIGINAL", "PRIMARY", "DIFFUSION", "NONE", "ND"},
		EchoNumber:        1,
		Files:             2,
	}
}

// Physio returns a physiological log series, which lacks imaging attributes.
func Physio(description string) Series {
	return Series{
		SeriesDescription: description,
		ImageType:         []string{"ORIGINAL", "PRIMARY", "RAWDATA", "PHYSIO"},
		Files:             1,
	}
}

// Write creates dir and fills it with s.Files DICOM files named IM0001.dcm onwards.
// It returns dir.
func Write(t testing.TB, dir string, s Series) string {
	t.Helper()
	if err := WriteSeries(dir, s); err != nil {
		t.Fatalf("write series %s: %v", dir, err)
	}
	return dir
}

// WriteSeries is Write without a testing.TB.
func WriteSeries(dir string, s Series) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	n := max(s.Files, 1)
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("IM%04d.dcm", i))
		if err := WriteFile(path, s, i); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the instance-th file of a series.
func WriteFile(path string, s Series, instance int) error {
	seriesUID := fmt.Sprintf("%s.%d", uidRoot, max(s.SeriesNumber, 1))
	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLE}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{fmt.Sprintf("%s.%d", seriesUID, instance)}),
		mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", instance)}),
		mustNewElement(tag.ImageType, s.ImageType),
	}
	if s.SeriesNumber > 0 {
		elements = append(elements, mustNewElement(tag.SeriesNumber, []string{fmt.Sprintf("%d", s.SeriesNumber)}))
	}
	manufacturer := s.Manufacturer
	if manufacturer == "" {
		manufacturer = "SIEMENS"
	}
	elements = append(elements, mustNewElement(tag.Manufacturer, []string{manufacturer}))

	optional := []struct {
		t    tag.Tag
		vals []string
	}{
		{tag.ScanningSequence, s.ScanningSequence},
		{tag.SequenceVariant, s.SequenceVariant},
		{tag.SequenceName, nonEmpty(s.SequenceName)},
		{tag.SeriesDescription, nonEmpty(s.SeriesDescription)},
		{tag.ProtocolName, nonEmpty(s.ProtocolName)},
	}
	for _, o := range optional {
		if len(o.vals) > 0 {
			elements = append(elements, mustNewElement(o.t, o.vals))
		}
	}
	if s.EchoNumber > 0 {
		elements = append(elements, mustNewElement(tag.EchoNumbers, []string{fmt.Sprintf("%d", s.EchoNumber)}))
	}

	var opts []dicom.WriteOption
	if s.Protocol {
		elements = append(elements, protocolElements(s.Repetitions, s.Contrasts)...)
		opts = append(opts, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
	}
	if s.Pixels {
		elements = append(elements, pixelElements(s.Rows, s.Cols, instance)...)
	}

	// Private groups must land between the standard ones.
	sort.SliceStable(elements[1:], func(i, j int) bool {
		a, b := elements[1+i].Tag, elements[1+j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return dicom.Write(f, dicom.Dataset{Elements: elements}, opts...)
}

// ASCCONV renders the text block Siemens scanners store in the series CSA header.
func ASCCONV(repetitions, contrasts int) string {
	var b strings.Builder
	b.WriteString("### ASCCONV BEGIN object=MrProtDataImpl@MrProtocolData version=51130001 ###\n")
	b.WriteString("ulVersion\t = 0x14b44b6\n")
	b.WriteString("tSequenceFileName\t = \"\"%SiemensSeq%\\ep2d_bold\"\"\n")
	if contrasts > 0 {
		fmt.Fprintf(&b, "lContrasts\t = %d\n", contrasts)
	}
	if repetitions > 0 {
		fmt.Fprintf(&b, "lRepetitions\t = %d\n", repetitions)
	}
	b.WriteString("sKSpace.lBaseResolution\t = 64\n")
	b.WriteString("### ASCCONV END ###\n")
	return b.String()
}

func protocolElements(repetitions, contrasts int) []*dicom.Element {
	block := []byte(ASCCONV(repetitions, contrasts))
	if len(block)%2 == 1 {
		block = append(block, 0)
	}
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1020}, "OB", block),
	}
}

func pixelElements(rows, cols, instance int) []*dicom.Element {
	if rows <= 0 {
		rows = 32
	}
	if cols <= 0 {
		cols = 32
	}
	nf := frame.NewNativeFrame[uint16](16, rows, cols, rows*cols, 1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			nf.RawData[y*cols+x] = uint16((x + y + instance) * 64)
		}
	}
	info := dicom.PixelDataInfo{
		Frames: []*frame.Frame{{Encapsulated: false, NativeData: nf}},
	}
	return []*dicom.Element{
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.Rows, []int{rows}),
		mustNewElement(tag.Columns, []int{cols}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.PixelData, info),
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// mustNewPrivateElement creates a DICOM element with a private tag and explicit VR.
// dicom.NewElement fails on unregistered private tags.
func mustNewPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}
