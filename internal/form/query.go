package form

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/frankli0324/go-asks/internal/charset"
)

const upperhex = "0123456789ABCDEF"

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '~': // unreserved
		return false
	case '/', '=', '+', '?', '&': // kept so pairs stay readable
		return false
	}
	return true
}

// Escape percent-encodes b leaving unreserved characters and "/=+?&" intact.
func Escape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if shouldEscape(c) {
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&15])
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Quote encodes s with enc and escapes the result.
func Quote(s string, enc charset.Encoder) (string, error) {
	if enc == nil {
		return Escape([]byte(s)), nil
	}
	b, err := enc(s)
	if err != nil {
		return "", err
	}
	return Escape(b), nil
}

func plus(s string) string {
	return strings.Join(strings.Fields(s), "+")
}

func scalar(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

// Pairs flattens values into unescaped key=value strings. Absent values are
// skipped, mappings contribute their keys, and lists one pair per element.
func Pairs(values Values) []string {
	var pairs []string
	for _, f := range values {
		if IsZero(f.Value) {
			continue
		}
		if s, ok := scalar(f.Value); ok {
			pairs = append(pairs, f.Key+"="+plus(s))
			continue
		}
		if sub, ok := Of(f.Value); ok {
			for _, sf := range sub {
				pairs = append(pairs, f.Key+"="+sf.Key)
			}
			continue
		}
		rv := reflect.ValueOf(f.Value)
		if k := rv.Kind(); k == reflect.Slice || k == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				s, ok := scalar(rv.Index(i).Interface())
				if !ok {
					s = fmt.Sprint(rv.Index(i).Interface())
				}
				pairs = append(pairs, f.Key+"="+plus(s))
			}
		}
	}
	return pairs
}

// Encode renders values as a query. prefix ("?", "&" or "") is only written
// when at least one pair was produced.
func Encode(values Values, prefix string, enc charset.Encoder) (string, error) {
	pairs := Pairs(values)
	if len(pairs) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		q, err := Quote(p, enc)
		if err != nil {
			return "", err
		}
		sb.WriteString(q)
	}
	return sb.String(), nil
}
