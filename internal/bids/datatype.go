package bids

import "slices"

// Datatype is the BIDS modality directory a file is written to.
type Datatype string

const (
	Anat Datatype = "anat"
	Func Datatype = "func"
	Fmap Datatype = "fmap"
	Dwi  Datatype = "dwi"
)

// AllDatatypes returns all supported datatypes.
func AllDatatypes() []Datatype {
	return []Datatype{Anat, Func, Fmap, Dwi}
}

// ParseDatatype parses a datatype name.
func ParseDatatype(s string) (Datatype, bool) {
	dt := Datatype(s)
	return dt, dt.Valid()
}

// Valid reports whether dt is a supported datatype.
func (dt Datatype) Valid() bool {
	_, ok := canonicalSuffixes[dt]
	return ok
}

// Suffixes returns the canonical suffixes of a datatype.
func (dt Datatype) Suffixes() []string {
	return slices.Clone(canonicalSuffixes[dt])
}

// AllowsSuffix reports whether suffix is canonical for dt.
func (dt Datatype) AllowsSuffix(suffix string) bool {
	return slices.Contains(canonicalSuffixes[dt], suffix)
}

var canonicalSuffixes = map[Datatype][]string{
	Anat: {
		"T1w", "T2w", "T1rho", "T1map", "T2map", "T2starw", "T2star",
		"FLAIR", "FLASH", "PD", "PDmap", "PDT2", "inplaneT1", "inplaneT2",
		"angio", "defacemask", "SWImag", "SWIphase",
	},
	Func: {"bold", "sbref", "physio"},
	Fmap: {"phasediff", "magnitude1", "magnitude2", "phase1", "phase2", "magnitude", "fieldmap", "epi"},
	Dwi:  {"dwi", "sbref"},
}
