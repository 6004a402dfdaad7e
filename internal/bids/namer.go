package bids

import (
	"fmt"
	"strings"
)

// Namer composes names for one subject/session. Subject and session indices
// are padded to the namer's precision, every other index to DefaultPrecision,
// except echo which BIDS writes unpadded.
type Namer struct {
	entities  Entities
	precision int
}

// NewNamer validates the entities and returns a Namer.
// A subject is mandatory; labels must be alphanumeric; indices must not be negative.
// precision <= 0 selects DefaultPrecision.
func NewNamer(e Entities, precision int) (*Namer, error) {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	if e.Subject.IsZero() {
		return nil, fmt.Errorf("%w: subject label or index is required", ErrInconsistentNaming)
	}

	var err error
	e.each(func(key string, ent *Entity) {
		if err != nil {
			return
		}
		if cerr := CheckLabel(ent.Label); cerr != nil {
			err = fmt.Errorf("%s: %w", key, cerr)
			return
		}
		if ent.Indexed && ent.Index < 0 {
			err = fmt.Errorf("%w: %s index %d is negative", ErrMalformedLabel, key, ent.Index)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Namer{entities: e, precision: precision}, nil
}

// Entities returns a copy of the namer's entities.
func (n *Namer) Entities() Entities {
	return n.entities
}

// Precision returns the padding used for subject and session indices.
func (n *Namer) Precision() int {
	return n.precision
}

// Merge returns a namer that keeps this namer's subject and session and takes
// every other entity from e.
func (n *Namer) Merge(e Entities) (*Namer, error) {
	e.Subject = n.entities.Subject
	e.Session = n.entities.Session
	return NewNamer(e, n.precision)
}

// SubjectTag returns the "sub-" tag. It is never empty.
func (n *Namer) SubjectTag() string {
	return n.entities.Subject.format(KeySubject, n.precision)
}

// SessionTag returns the "ses-" tag or "".
func (n *Namer) SessionTag() string {
	return n.entities.Session.format(KeySession, n.precision)
}

// TaskTag returns the "task-" tag or "".
func (n *Namer) TaskTag() string {
	return n.entities.Task.format(KeyTask, DefaultPrecision)
}

// AcquisitionTag returns the "acq-" tag or "".
func (n *Namer) AcquisitionTag() string {
	return n.entities.Acquisition.format(KeyAcquisition, DefaultPrecision)
}

// DirectionTag returns the "dir-" tag or "".
func (n *Namer) DirectionTag() string {
	return n.entities.Direction.format(KeyDirection, DefaultPrecision)
}

// RunTag returns the "run-" tag, padded to DefaultPrecision, or "".
func (n *Namer) RunTag() string {
	return n.entities.Run.format(KeyRun, DefaultPrecision)
}

// EchoTag returns the unpadded "echo-" tag or "".
func (n *Namer) EchoTag() string {
	return n.entities.Echo.format(KeyEcho, 0)
}

// PartTag returns the "part-" tag or "".
func (n *Namer) PartTag() string {
	return n.entities.Part.format(KeyPart, 0)
}

// Prefix joins the non-empty tags with underscores, without a suffix.
func (n *Namer) Prefix() string {
	tags := []string{
		n.SubjectTag(), n.SessionTag(), n.TaskTag(), n.AcquisitionTag(),
		n.DirectionTag(), n.RunTag(), n.EchoTag(), n.PartTag(),
	}
	parts := tags[:0]
	for _, t := range tags {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "_")
}

// Dir returns the "sub-XX/ses-YY" directory of this namer, without the session level
// when no session is set.
func (n *Namer) Dir() string {
	if ses := n.SessionTag(); ses != "" {
		return n.SubjectTag() + "/" + ses
	}
	return n.SubjectTag()
}

// Name composes a full file name (without extension) for a datatype.
// The suffix must be canonical for the datatype and functional data needs a task.
func (n *Namer) Name(dt Datatype, suffix string) (string, error) {
	if !dt.Valid() {
		return "", fmt.Errorf("%w: unknown datatype %q", ErrInconsistentNaming, dt)
	}
	if !dt.AllowsSuffix(suffix) {
		return "", fmt.Errorf("%w: suffix %q is not valid for %s", ErrInconsistentNaming, suffix, dt)
	}
	if dt == Func && n.entities.Task.IsZero() {
		return "", fmt.Errorf("%w: functional data require a task label", ErrInconsistentNaming)
	}
	return n.Prefix() + "_" + suffix, nil
}
