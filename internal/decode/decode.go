// Package decode converts raw fixed-width field bytes into typed Go
// values. Decoding is pure: the same bytes and spec always produce the
// same value or the same error, and errors keep the field name and raw
// slice for diagnostics.
//
// Typed values are nil, string, int64, float64, or time.Time.
package decode

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncopendata/opibase/internal/layout"
)

// Reason classifies a field decode failure.
type Reason int

const (
	RequiredFieldEmpty Reason = iota
	TypeMismatch
	InvalidDate
)

func (r Reason) String() string {
	switch r {
	case RequiredFieldEmpty:
		return "required field empty"
	case TypeMismatch:
		return "type mismatch"
	case InvalidDate:
		return "invalid date"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// FieldError is a single field's decode failure.
type FieldError struct {
	Field  string
	Raw    []byte
	Reason Reason
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s (raw %q)", e.Field, e.Reason, e.Raw)
}

// The published data marks missing values three ways: blanks, runs of
// question marks, and the zero date.
const (
	nullDateDashed = "0001-01-01"
	nullDatePlain  = "00010101"
)

func isNullMarker(s string) bool {
	if s == nullDateDashed || s == nullDatePlain {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '?' {
			return false
		}
	}
	return len(s) > 0
}

func allZeros(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return len(s) > 0
}

// Field decodes one raw field slice per its spec. A nil value means
// null. The raw slice is not retained.
func Field(raw []byte, spec layout.FieldSpec) (any, error) {
	s := string(bytes.TrimSpace(raw))

	if s == "" || isNullMarker(s) {
		if spec.Nullable {
			return nil, nil
		}
		return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: RequiredFieldEmpty}
	}

	switch spec.Kind {
	case layout.Text, layout.Code:
		return s, nil

	case layout.Integer:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: TypeMismatch}
		}
		return v, nil

	case layout.Decimal:
		return decodeDecimal(s, raw, spec)

	case layout.Date:
		return decodeDate(s, raw, spec)

	case layout.Time:
		return decodeTime(s, raw, spec)
	}
	return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: TypeMismatch}
}

func decodeDecimal(s string, raw []byte, spec layout.FieldSpec) (any, error) {
	// Fields with an implied decimal position carry digits only; the
	// point is reinserted per the field's declared scale.
	if spec.Scale > 0 && !strings.Contains(s, ".") {
		neg := false
		digits := s
		if len(digits) > 0 && (digits[0] == '-' || digits[0] == '+') {
			neg = digits[0] == '-'
			digits = digits[1:]
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: TypeMismatch}
		}
		v := float64(n)
		for i := 0; i < spec.Scale; i++ {
			v /= 10
		}
		if neg {
			v = -v
		}
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: TypeMismatch}
	}
	return v, nil
}

// DateFormat resolves the effective date layout for a spec: an
// explicit format wins, otherwise the field length picks between the
// two conventions seen in the published files.
func DateFormat(spec layout.FieldSpec) string {
	if spec.DateFormat != "" {
		return spec.DateFormat
	}
	if spec.Length == 10 {
		return "2006-01-02"
	}
	return "20060102"
}

func decodeDate(s string, raw []byte, spec layout.FieldSpec) (any, error) {
	if allZeros(s) {
		// The mainframe writes zeros for "no date"; that is a null
		// even on a required field, never an error.
		return nil, nil
	}
	t, err := time.Parse(DateFormat(spec), s)
	if err != nil {
		return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: InvalidDate}
	}
	return t, nil
}

func decodeTime(s string, raw []byte, spec layout.FieldSpec) (any, error) {
	for _, f := range []string{"15:04:05", "150405"} {
		if t, err := time.Parse(f, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return nil, &FieldError{Field: spec.Name, Raw: append([]byte(nil), raw...), Reason: TypeMismatch}
}

// Record decodes every field of a raw record, collecting all field
// errors instead of stopping at the first. Fields whose decode fails
// are absent from the returned map.
func Record(raw []byte, l *layout.RecordLayout) (map[string]any, []*FieldError) {
	values := make(map[string]any, len(l.Fields))
	var errs []*FieldError
	for _, spec := range l.Fields {
		var slice []byte
		switch {
		case len(raw) >= spec.End():
			slice = raw[spec.Offset:spec.End()]
		case len(raw) > spec.Offset:
			slice = raw[spec.Offset:]
		default:
			slice = nil
		}
		v, err := Field(slice, spec)
		if err != nil {
			errs = append(errs, err.(*FieldError))
			continue
		}
		values[spec.Name] = v
	}
	return values, errs
}
