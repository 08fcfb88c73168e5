package decode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncopendata/opibase/internal/layout"
)

// Encode renders a typed value back into its fixed-width byte
// representation: text left-justified, numerics right-justified, both
// space-padded to the field length. A nil value encodes as all pad.
// Decode(Encode(v)) is value-equivalent to v (round-trip up to
// whitespace normalization).
func Encode(v any, spec layout.FieldSpec) ([]byte, error) {
	var s string
	switch val := v.(type) {
	case nil:
		s = ""
	case string:
		s = val
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		if spec.Kind == layout.Decimal && spec.Scale > 0 {
			s = scaledDigits(val, spec.Scale)
		} else {
			s = strconv.FormatFloat(val, 'f', -1, 64)
		}
	case time.Time:
		s = val.Format(DateFormat(spec))
	default:
		return nil, fmt.Errorf("encode field %s: unsupported value type %T", spec.Name, v)
	}
	if len(s) > spec.Length {
		return nil, fmt.Errorf("encode field %s: %q exceeds length %d", spec.Name, s, spec.Length)
	}
	pad := strings.Repeat(" ", spec.Length-len(s))
	switch spec.Kind {
	case layout.Integer, layout.Decimal:
		return []byte(pad + s), nil
	default:
		return []byte(s + pad), nil
	}
}

// scaledDigits renders a float as the digit string an implied-scale
// field would carry, e.g. 123.45 at scale 2 → "12345".
func scaledDigits(v float64, scale int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	for i := 0; i < scale; i++ {
		v *= 10
	}
	s := strconv.FormatInt(int64(v+0.5), 10)
	for len(s) <= scale {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
