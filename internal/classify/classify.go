// Package classify decides where each series directory goes in a BIDS dataset.
//
// Folder-name rules from the project configuration are tried first. Without a
// matching rule, the decision comes from the DICOM header of one sampled file,
// following the conventions of Siemens MR protocols.
package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mrsinham/dicombids/internal/bids"
	"github.com/mrsinham/dicombids/internal/config"
	"github.com/mrsinham/dicombids/internal/dicom"
	"github.com/mrsinham/dicombids/internal/scan"
)

// Source tells how a classification was reached.
type Source string

const (
	SourceRule   Source = "rule"
	SourceHeader Source = "header"
)

// Exclusion reasons.
const (
	ReasonNotDICOM       = "not a DICOM series"
	ReasonEmpty          = "no files"
	ReasonIncomplete     = "incomplete DICOM header"
	ReasonUnrecognized   = "unrecognized acquisition"
	ReasonNoTask         = "functional series without task label"
	ReasonFieldmapSkip   = "fieldmaps skipped"
	ReasonFieldmapEcho   = "unexpected fieldmap image"
	ReasonIncompleteScan = "incomplete acquisition"
)

// Classification is the outcome for one series. Reason is set when the series
// is excluded, and the naming fields are then meaningless.
type Classification struct {
	Datatype    bids.Datatype
	Suffix      string
	Task        string
	Acquisition string
	Direction   string
	Run         int    // 0 omits the run entity
	Echo        int    // 0 omits the echo entity
	Part        string // "mag", "phase" or ""
	Source      Source
	Reason      string

	// Header is the sampled header, nil when none could be read.
	Header *dicom.Header
}

// Excluded reports whether the series is left out of the document.
func (c Classification) Excluded() bool {
	return c.Reason != ""
}

// Entities returns the non-identity entities of the classification.
func (c Classification) Entities() bids.Entities {
	var e bids.Entities
	if c.Task != "" {
		e.Task = bids.Label(c.Task)
	}
	if c.Acquisition != "" {
		e.Acquisition = bids.Label(c.Acquisition)
	}
	if c.Direction != "" {
		e.Direction = bids.Label(c.Direction)
	}
	if c.Run > 0 {
		e.Run = bids.Index(c.Run)
	}
	if c.Echo > 0 {
		e.Echo = bids.Index(c.Echo)
	}
	if c.Part != "" {
		e.Part = bids.Label(c.Part)
	}
	return e
}

// String renders a short description such as "func/bold" or "excluded: no files".
func (c Classification) String() string {
	if c.Excluded() {
		return "excluded: " + c.Reason
	}
	return string(c.Datatype) + "/" + c.Suffix
}

func exclude(reason string, h *dicom.Header) Classification {
	return Classification{Reason: reason, Header: h}
}

// Classifier holds the configuration-driven parts of the decision.
type Classifier struct {
	cfg config.Config
}

// New returns a Classifier for cfg.
func New(cfg config.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify samples the series header and classifies the series.
func (c *Classifier) Classify(s scan.Series) Classification {
	h, err := dicom.ReadHeader(s.Path, s.Files)
	switch {
	case errors.Is(err, dicom.ErrEmptySeries):
		return exclude(ReasonEmpty, nil)
	case errors.Is(err, dicom.ErrIncompleteHeader):
		return exclude(ReasonIncomplete, nil)
	case err != nil:
		return exclude(ReasonNotDICOM, nil)
	}
	return c.ClassifyHeader(s.Name, h, len(s.Files))
}

// ClassifyHeader classifies a series from its directory name, sampled header
// and number of files.
func (c *Classifier) ClassifyHeader(name string, h dicom.Header, numFiles int) Classification {
	cl, ok := c.byRule(name, h)
	if !ok {
		cl = c.byHeader(h)
	}
	cl.Header = &h
	if cl.Excluded() {
		return cl
	}

	if c.cfg.SkipFieldmaps && cl.Datatype == bids.Fmap {
		return exclude(ReasonFieldmapSkip, &h)
	}
	if c.cfg.SkipIncomplete && h.Incomplete(numFiles) {
		return exclude(fmt.Sprintf("%s (%d files, %d repetitions planned)",
			ReasonIncompleteScan, numFiles, h.Repetitions+1), &h)
	}
	return cl
}

func (c *Classifier) byRule(name string, h dicom.Header) (Classification, bool) {
	lower := strings.ToLower(name)
	for _, r := range c.cfg.Rules {
		if ok, _ := doublestar.Match(strings.ToLower(r.Match), lower); !ok {
			continue
		}
		cl := Classification{
			Datatype:    bids.Datatype(r.Datatype),
			Suffix:      r.Suffix,
			Task:        r.Task,
			Acquisition: r.Acquisition,
			Direction:   r.Direction,
			Run:         r.Run,
			Source:      SourceRule,
		}
		if h.MultiEcho() {
			cl.Echo = h.EchoNumber
		}
		if carriesPart(cl.Datatype, cl.Suffix) {
			cl.Part = h.ImageKind()
		}
		return cl, true
	}
	return Classification{}, false
}

func (c *Classifier) byHeader(h dicom.Header) Classification {
	cl := Classification{Source: SourceHeader}

	switch {
	case h.Physio:
		task, ok := c.cfg.TaskFor(h.SeriesDescription)
		if !ok {
			return exclude(ReasonNoTask, nil)
		}
		cl.Datatype, cl.Suffix, cl.Task = bids.Func, "physio", task

	case h.HasSequence("EP") && strings.HasPrefix(h.SequenceName, "*ep_b"):
		cl.Datatype, cl.Suffix = bids.Dwi, "dwi"

	case h.HasSequence("EP"):
		task, ok := c.cfg.TaskFor(h.SeriesDescription)
		if !ok {
			return exclude(ReasonNoTask, nil)
		}
		cl.Datatype, cl.Suffix, cl.Task = bids.Func, "bold", task
		cl.Acquisition = "mb"
		if h.MultiEcho() {
			cl.Acquisition = "mbme"
			cl.Echo = h.EchoNumber
		}
		cl.Part = h.ImageKind()

	case h.HasSequence("GR") && !h.HasSequence("IR"):
		switch h.SequenceName {
		case "*fm2d2r":
			suffix, ok := fieldmapSuffix(h)
			if !ok {
				return exclude(ReasonFieldmapEcho, nil)
			}
			cl.Datatype, cl.Suffix = bids.Fmap, suffix
		case "*fl3d11r":
			cl.Datatype, cl.Suffix = bids.Anat, "T2starw"
			cl.Echo = h.EchoNumber
			cl.Part = h.ImageKind()
		default:
			return exclude(ReasonUnrecognized, nil)
		}

	case h.HasSequence("IR"):
		cl.Datatype, cl.Suffix = bids.Anat, "T1w"

	default:
		return exclude(ReasonUnrecognized, nil)
	}
	return cl
}

// fieldmapSuffix names the images of a dual-echo field map: one magnitude
// series per echo and one phase difference series.
func fieldmapSuffix(h dicom.Header) (string, bool) {
	switch h.ImageKind() {
	case "mag":
		if h.EchoNumber == 1 || h.EchoNumber == 2 {
			return "magnitude" + strconv.Itoa(h.EchoNumber), true
		}
	case "phase":
		return "phasediff", true
	}
	return "", false
}

func carriesPart(dt bids.Datatype, suffix string) bool {
	return (dt == bids.Func && suffix == "bold") || (dt == bids.Anat && suffix == "T2starw")
}
