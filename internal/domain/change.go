package domain

import (
	"strconv"
	"strings"
)

// ChangeKind tags a ChangeRecord.
type ChangeKind string

const (
	ChangeCreated     ChangeKind = "created"
	ChangeMutated     ChangeKind = "mutated"
	ChangePublished   ChangeKind = "published"
	ChangeDeleted     ChangeKind = "deleted"
	ChangeWrapped     ChangeKind = "wrapped"
	ChangeUnwrapped   ChangeKind = "unwrapped"
	ChangeTransferred ChangeKind = "transferred"
)

// ChangeRecord is one object change reported for an executed batch.
// Published records carry PackageID and no ObjectType.
type ChangeRecord struct {
	Kind       ChangeKind `json:"type"`
	ObjectType string     `json:"objectType,omitempty"`
	ObjectID   string     `json:"objectId,omitempty"`
	PackageID  string     `json:"packageId,omitempty"`
	Owner      string     `json:"owner,omitempty"`
	Version    uint64     `json:"version,omitempty"`
}

// ID returns the identifier the record refers to.
func (c ChangeRecord) ID() string {
	if c.Kind == ChangePublished {
		return c.PackageID
	}
	return c.ObjectID
}

// Predicate selects change records by kind and type-name substrings.
// The zero value matches nothing; start from Created or Published.
type Predicate struct {
	kind     ChangeKind
	includes []string
	excludes []string
}

// Created matches newly created objects.
func Created() Predicate {
	return Predicate{kind: ChangeCreated}
}

// Published matches the published package record.
func Published() Predicate {
	return Predicate{kind: ChangePublished}
}

// Containing requires every substring to appear in the object type.
func (p Predicate) Containing(subs ...string) Predicate {
	p.includes = append(append([]string(nil), p.includes...), subs...)
	return p
}

// Excluding rejects object types containing any of the substrings.
func (p Predicate) Excluding(subs ...string) Predicate {
	p.excludes = append(append([]string(nil), p.excludes...), subs...)
	return p
}

// Match reports whether c satisfies every clause of p.
func (p Predicate) Match(c ChangeRecord) bool {
	if p.kind == "" || c.Kind != p.kind {
		return false
	}
	for _, s := range p.includes {
		if !strings.Contains(c.ObjectType, s) {
			return false
		}
	}
	for _, s := range p.excludes {
		if strings.Contains(c.ObjectType, s) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	var b strings.Builder
	b.WriteString(string(p.kind))
	if len(p.includes) > 0 {
		b.WriteString(" contains")
		b.WriteString(quoteAll(p.includes))
	}
	if len(p.excludes) > 0 {
		b.WriteString(" excludes")
		b.WriteString(quoteAll(p.excludes))
	}
	return b.String()
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(q, ",") + "]"
}

// Extract returns the id of the first record matching p, in the order the ledger returned them.
// Callers must make p specific enough to be unambiguous.
func Extract(changes []ChangeRecord, p Predicate) (string, error) {
	for _, c := range changes {
		if p.Match(c) {
			return c.ID(), nil
		}
	}
	return "", &ResourceNotFoundError{Predicate: p.String()}
}

// ExtractAll returns the ids of every record matching p, preserving order.
func ExtractAll(changes []ChangeRecord, p Predicate) []string {
	var ids []string
	for _, c := range changes {
		if p.Match(c) {
			ids = append(ids, c.ID())
		}
	}
	return ids
}
