// Package layout describes the fixed-width record schema of each
// source file: which bytes belong to which field, how each field is
// typed, and how files relate to each other through keys. Layouts are
// constructed once at startup and immutable afterwards.
package layout

import (
	"errors"
	"fmt"
	"sort"
)

// Kind is the semantic type of a field.
type Kind int

const (
	Text Kind = iota
	Code
	Integer
	Decimal
	Date
	Time
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "TEXT"
	case Code:
		return "CODE"
	case Integer:
		return "INTEGER"
	case Decimal:
		return "DECIMAL"
	case Date:
		return "DATE"
	case Time:
		return "TIME"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FieldSpec describes one field of a fixed-width record.
type FieldSpec struct {
	Name        string
	Offset      int // 0-based byte offset within the record
	Length      int // byte length, > 0
	Kind        Kind
	Nullable    bool
	Description string

	// DateFormat is the Go reference layout for Date fields. When
	// empty, it defaults by field length: 8 → "20060102",
	// 10 → "2006-01-02".
	DateFormat string

	// Scale is the implied decimal position for Decimal fields that
	// carry no literal decimal point (e.g. Scale 2 reads "12345" as
	// 123.45). Zero means the digits are literal.
	Scale int
}

// End returns the exclusive end offset of the field.
func (f FieldSpec) End() int { return f.Offset + f.Length }

// Ref names a field in another file, the target of a foreign key.
type Ref struct {
	FileID string
	Field  string
}

// RecordLayout is the full schema of one source file.
type RecordLayout struct {
	FileID      string
	RecordWidth int
	Fields      []FieldSpec
	PrimaryKey  []string
	ForeignKeys map[string]Ref // field name → referenced file/field
}

// Field returns the spec for a field name, or false if absent.
func (l *RecordLayout) Field(name string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the field names in declaration order.
func (l *RecordLayout) FieldNames() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the structural invariants: a positive record width,
// every field inside the record, unique names, no overlapping byte
// ranges, and key declarations that name real fields.
func (l *RecordLayout) Validate() error {
	if l.FileID == "" {
		return errors.New("layout: empty file id")
	}
	if l.RecordWidth <= 0 {
		return fmt.Errorf("layout %s: record width %d", l.FileID, l.RecordWidth)
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout %s: no fields", l.FileID)
	}
	seen := make(map[string]bool, len(l.Fields))
	for _, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout %s: unnamed field at offset %d", l.FileID, f.Offset)
		}
		if seen[f.Name] {
			return fmt.Errorf("layout %s: duplicate field %s", l.FileID, f.Name)
		}
		seen[f.Name] = true
		if f.Offset < 0 || f.Length <= 0 {
			return fmt.Errorf("layout %s: field %s has offset %d length %d", l.FileID, f.Name, f.Offset, f.Length)
		}
		if f.End() > l.RecordWidth {
			return fmt.Errorf("layout %s: field %s ends at %d beyond record width %d",
				l.FileID, f.Name, f.End(), l.RecordWidth)
		}
	}
	// Overlap check over a sorted copy; declaration order is free.
	sorted := make([]FieldSpec, len(l.Fields))
	copy(sorted, l.Fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Offset < sorted[i-1].End() {
			return fmt.Errorf("layout %s: fields %s and %s overlap",
				l.FileID, sorted[i-1].Name, sorted[i].Name)
		}
	}
	for _, name := range l.PrimaryKey {
		if !seen[name] {
			return fmt.Errorf("layout %s: primary key field %s not defined", l.FileID, name)
		}
	}
	for name, ref := range l.ForeignKeys {
		if !seen[name] {
			return fmt.Errorf("layout %s: foreign key field %s not defined", l.FileID, name)
		}
		if ref.FileID == "" || ref.Field == "" {
			return fmt.Errorf("layout %s: foreign key %s has empty target", l.FileID, name)
		}
	}
	return nil
}
