package layout

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// desLine matches one field declaration in a DES descriptor:
// field code, description, type, 1-based start, length — columns
// separated by runs of at least two spaces (the description itself may
// contain single spaces). Lines that do not match are headers or
// filler and are skipped, as the published descriptors intermix both.
var desLine = regexp.MustCompile(`^(\S+)\s{2,}(.+?)\s{2,}([A-Z]+)\s+(\d+)\s+(\d+)`)

// ParseDES parses the content of a DES descriptor file into a
// RecordLayout. Field order follows the descriptor; the record width
// is the largest field end. Keys are not declared in descriptors and
// are left empty for the caller to wire.
func ParseDES(fileID string, content []byte) (*RecordLayout, error) {
	l := &RecordLayout{FileID: fileID}

	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := bytes.TrimRight(sc.Bytes(), " \t\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		m := desLine.FindSubmatch(line)
		if m == nil {
			continue
		}
		name := string(m[1])
		desc := string(bytes.TrimSpace(m[2]))
		start, err := strconv.Atoi(string(m[4]))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("des %s: field %s: bad start position %q", fileID, name, m[4])
		}
		length, err := strconv.Atoi(string(m[5]))
		if err != nil || length < 1 {
			return nil, fmt.Errorf("des %s: field %s: bad length %q", fileID, name, m[5])
		}

		spec := FieldSpec{
			Name:        name,
			Offset:      start - 1,
			Length:      length,
			Kind:        kindForDESType(string(m[3])),
			Nullable:    true,
			Description: desc,
		}
		l.Fields = append(l.Fields, spec)
		if spec.End() > l.RecordWidth {
			l.RecordWidth = spec.End()
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("des %s: %w", fileID, err)
	}
	if len(l.Fields) == 0 {
		return nil, fmt.Errorf("des %s: no field declarations found", fileID)
	}
	return l, nil
}

// kindForDESType maps the descriptor's type column onto a Kind.
// Unrecognized types degrade to Text, which matches how the data is
// ultimately stored for anything non-numeric.
func kindForDESType(t string) Kind {
	switch t {
	case "CHAR":
		return Text
	case "DECIMAL":
		return Decimal
	case "INTEGER":
		return Integer
	case "DATE":
		return Date
	case "TIME":
		return Time
	}
	return Text
}

// WireKeys declares keyField as this layout's key. With ref nil the
// field becomes the primary key and is made required; with ref set the
// field becomes a nullable foreign key to ref, which is how every
// dependent file points back at the reference file.
func (l *RecordLayout) WireKeys(keyField string, ref *Ref) error {
	idx := -1
	for i, f := range l.Fields {
		if f.Name == keyField {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("layout %s: key field %s not present", l.FileID, keyField)
	}
	if ref == nil {
		l.Fields[idx].Nullable = false
		l.PrimaryKey = []string{keyField}
		return nil
	}
	if l.ForeignKeys == nil {
		l.ForeignKeys = make(map[string]Ref, 1)
	}
	l.ForeignKeys[keyField] = *ref
	return nil
}
