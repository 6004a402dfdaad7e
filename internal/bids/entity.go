// Package bids composes BIDS compliant file names.
//
// A BIDS file name is a sequence of key-value entities in a fixed order
// (sub, ses, task, acq, dir, run, echo, part) followed by a suffix, for example
// "sub-01_ses-02_task-rest_acq-mb_bold". Each entity carries an optional
// alphanumeric label and an optional zero-padded index.
package bids

import (
	"fmt"
	"strings"
)

// DefaultPrecision is the zero padding applied to entity indices.
const DefaultPrecision = 2

// Entity is one key-value pair of a BIDS name. The zero value is absent.
type Entity struct {
	Label   string
	Index   int
	Indexed bool // Index is part of the tag
}

// Label returns an entity holding only a label.
func Label(label string) Entity {
	return Entity{Label: label}
}

// Index returns an entity holding only an index.
func Index(index int) Entity {
	return Entity{Index: index, Indexed: true}
}

// LabelIndex returns an entity holding both a label and an index.
func LabelIndex(label string, index int) Entity {
	return Entity{Label: label, Index: index, Indexed: true}
}

// IsZero reports whether the entity contributes nothing to a name.
func (e Entity) IsZero() bool {
	return e.Label == "" && !e.Indexed
}

// format renders "<key>-<label><index>" or "" for an absent entity.
// precision <= 0 leaves the index unpadded.
func (e Entity) format(key string, precision int) string {
	if e.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(key)
	b.WriteByte('-')
	b.WriteString(e.Label)
	if e.Indexed {
		if precision > 0 {
			fmt.Fprintf(&b, "%0*d", precision, e.Index)
		} else {
			fmt.Fprintf(&b, "%d", e.Index)
		}
	}
	return b.String()
}

// Entity keys in canonical order.
const (
	KeySubject     = "sub"
	KeySession     = "ses"
	KeyTask        = "task"
	KeyAcquisition = "acq"
	KeyDirection   = "dir"
	KeyRun         = "run"
	KeyEcho        = "echo"
	KeyPart        = "part"
)

// EntityOrder lists the supported entity keys in the order they appear in a name.
var EntityOrder = []string{
	KeySubject, KeySession, KeyTask, KeyAcquisition, KeyDirection, KeyRun, KeyEcho, KeyPart,
}

// Entities holds every entity a name may carry.
type Entities struct {
	Subject     Entity
	Session     Entity
	Task        Entity
	Acquisition Entity
	Direction   Entity
	Run         Entity
	Echo        Entity
	Part        Entity
}

// each visits the entities in canonical order.
func (e *Entities) each(fn func(key string, ent *Entity)) {
	fn(KeySubject, &e.Subject)
	fn(KeySession, &e.Session)
	fn(KeyTask, &e.Task)
	fn(KeyAcquisition, &e.Acquisition)
	fn(KeyDirection, &e.Direction)
	fn(KeyRun, &e.Run)
	fn(KeyEcho, &e.Echo)
	fn(KeyPart, &e.Part)
}
