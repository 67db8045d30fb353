package repository

import (
	"strconv"
	"time"

	"github.com/spec-kit/tix-api/internal/domain"
)

// changeSet accumulates field diffs for one audit record. Values are
// string-encoded on both sides; nil marks an absent value.
type changeSet map[string]domain.FieldChange

func (c changeSet) set(field string, from, to *string) {
	c[field] = domain.FieldChange{From: from, To: to}
}

func (c changeSet) setStr(field, from, to string) {
	if from != to {
		c.set(field, strValue(from), strValue(to))
	}
}

func (c changeSet) setPtr(field string, from, to *string) {
	if !strPtrEq(from, to) {
		c.set(field, from, to)
	}
}

func (c changeSet) setBool(field string, from, to bool) {
	if from != to {
		c.set(field, strValue(strconv.FormatBool(from)), strValue(strconv.FormatBool(to)))
	}
}

func (c changeSet) setTimePtr(field string, from, to *time.Time) {
	if !timePtrEq(from, to) {
		c.set(field, timeValue(from), timeValue(to))
	}
}

func strValue(s string) *string {
	return &s
}

func timeValue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEq(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
