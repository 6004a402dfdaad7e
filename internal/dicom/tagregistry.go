package dicom

import (
	"fmt"
	"slices"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// AttrGroup says what an attribute tells about a series.
type AttrGroup int

const (
	// GroupSubject attributes identify the scanned person. They never take part
	// in the mapping and are only shown on request.
	GroupSubject AttrGroup = iota
	// GroupScanner attributes describe the site and the scanner.
	GroupScanner
	// GroupMapping attributes are the ones ReadHeader uses to place a series.
	GroupMapping
	// GroupTiming attributes are acquisition parameters that help telling
	// similar series apart.
	GroupTiming
)

var groupNames = [...]string{"subject", "scanner", "mapping", "timing"}

func (g AttrGroup) String() string {
	if int(g) < 0 || int(g) >= len(groupNames) {
		return fmt.Sprintf("AttrGroup(%d)", int(g))
	}
	return groupNames[g]
}

// TagInfo names one DICOM attribute that can be shown next to a mapping.
type TagInfo struct {
	Name  string // DICOM keyword
	Tag   tag.Tag
	Group AttrGroup
}

// attributes are listed by group, then in the order an operator reads them.
var attributes = []TagInfo{
	{"PatientID", tag.PatientID, GroupSubject},
	{"PatientName", tag.PatientName, GroupSubject},
	{"PatientSex", tag.PatientSex, GroupSubject},
	{"PatientBirthDate", tag.PatientBirthDate, GroupSubject},
	{"StudyDate", tag.StudyDate, GroupSubject},

	{"Manufacturer", tag.Manufacturer, GroupScanner},
	{"ManufacturerModelName", tag.ManufacturerModelName, GroupScanner},
	{"MagneticFieldStrength", tag.MagneticFieldStrength, GroupScanner},
	{"InstitutionName", tag.InstitutionName, GroupScanner},
	{"StationName", tag.StationName, GroupScanner},
	{"StudyDescription", tag.StudyDescription, GroupScanner},

	{"SeriesDescription", tag.SeriesDescription, GroupMapping},
	{"ProtocolName", tag.ProtocolName, GroupMapping},
	{"SeriesNumber", tag.SeriesNumber, GroupMapping},
	{"ScanningSequence", tag.ScanningSequence, GroupMapping},
	{"SequenceVariant", tag.SequenceVariant, GroupMapping},
	{"SequenceName", tag.SequenceName, GroupMapping},
	{"ImageType", tag.ImageType, GroupMapping},
	{"EchoNumbers", tag.EchoNumbers, GroupMapping},

	{"RepetitionTime", tag.RepetitionTime, GroupTiming},
	{"EchoTime", tag.EchoTime, GroupTiming},
	{"FlipAngle", tag.FlipAngle, GroupTiming},
	{"SliceThickness", tag.SliceThickness, GroupTiming},
	{"InstanceNumber", tag.InstanceNumber, GroupTiming},
	{"ImageComments", tag.ImageComments, GroupTiming},
	{"BodyPartExamined", tag.BodyPartExamined, GroupTiming},
}

var byKeyword = func() map[string]TagInfo {
	m := make(map[string]TagInfo, len(attributes))
	for _, a := range attributes {
		m[strings.ToLower(a.Name)] = a
	}
	return m
}()

// Attributes returns the attributes LookupTag knows, grouped.
func Attributes() []TagInfo {
	return slices.Clone(attributes)
}

// KnownTags returns the known keywords in alphabetical order.
func KnownTags() []string {
	names := make([]string, 0, len(attributes))
	for _, a := range attributes {
		names = append(names, a.Name)
	}
	slices.Sort(names)
	return names
}

// LookupTag resolves a DICOM keyword, ignoring case and surrounding blanks.
// Unknown keywords get an error suggesting the nearest known one.
func LookupTag(name string) (TagInfo, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if info, ok := byKeyword[key]; ok {
		return info, nil
	}
	if near := nearestKeyword(key); near != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, near)
	}
	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// maxSuggestDistance bounds how far a typo may be from a suggested keyword.
const maxSuggestDistance = 5

// nearestKeyword returns the keyword closest to key, or "" when none is
// within maxSuggestDistance. Equal distances go to the first keyword in
// alphabetical order.
func nearestKeyword(key string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, name := range KnownTags() {
		if d := editDistance(key, strings.ToLower(name)); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance of a and b, computed on bytes
// with a single reusable row.
func editDistance(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if a[i-1] == b[j-1] {
				row[j] = diag
			} else {
				row[j] = 1 + min(diag, up, row[j-1])
			}
			diag = up
		}
	}
	return row[len(b)]
}
