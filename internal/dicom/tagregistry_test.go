package dicom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestLookupTag(t *testing.T) {
	tests := []struct {
		in    string
		tag   tag.Tag
		group AttrGroup
	}{
		{"PatientID", tag.PatientID, GroupSubject},
		{"manufacturer", tag.Manufacturer, GroupScanner},
		{"SERIESDESCRIPTION", tag.SeriesDescription, GroupMapping},
		{" SequenceName ", tag.SequenceName, GroupMapping},
		{"EchoTime", tag.EchoTime, GroupTiming},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			info, err := LookupTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, info.Tag)
			assert.Equal(t, tt.group, info.Group)
			assert.Equal(t, strings.TrimSpace(info.Name), info.Name)
		})
	}
}

func TestLookupTag_Suggestion(t *testing.T) {
	_, err := LookupTag("SeriesDescripton")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "SeriesDescription"`)

	_, err = LookupTag("CompletelyUnrelatedAttributeName")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestAttributes(t *testing.T) {
	attrs := Attributes()
	require.Len(t, attrs, len(byKeyword), "keywords must be unique")

	for i := 1; i < len(attrs); i++ {
		assert.LessOrEqual(t, attrs[i-1].Group, attrs[i].Group, "attributes not grouped at %s", attrs[i].Name)
	}

	names := KnownTags()
	assert.IsIncreasing(t, names)
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "ab", 2},
		{"kitten", "sitting", 3},
		{"echotime", "echotime", 0},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "editDistance(%q, %q)", tt.a, tt.b)
	}
}

func TestAttrGroup_String(t *testing.T) {
	assert.Equal(t, "mapping", GroupMapping.String())
	assert.Equal(t, "AttrGroup(9)", AttrGroup(9).String())
}
