// package form encodes request data into url queries, urlencoded bodies and
// multipart bodies.
package form

import (
	"net/url"
	"reflect"
	"sort"
)

type Field struct {
	Key   string
	Value interface{}
}

// Values is an ordered mapping. Unlike url.Values the insertion order is kept
// and a key may appear more than once.
type Values []Field

func (v *Values) Add(key string, value interface{}) {
	*v = append(*v, Field{key, value})
}

// Set replaces the value of the first field named key, dropping any later
// duplicates, or appends a new field.
func (v *Values) Set(key string, value interface{}) {
	out := (*v)[:0]
	found := false
	for _, f := range *v {
		if f.Key != key {
			out = append(out, f)
			continue
		}
		if !found {
			out = append(out, Field{key, value})
			found = true
		}
	}
	if !found {
		out = append(out, Field{key, value})
	}
	*v = out
}

func (v Values) Get(key string) (interface{}, bool) {
	for _, f := range v {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Of converts mapping-like data into Values. Go maps carry no order, so their
// keys are sorted. ok is false when data is not a mapping.
func Of(data interface{}) (v Values, ok bool) {
	switch d := data.(type) {
	case nil:
		return nil, false
	case Values:
		return d, true
	case *Values:
		if d == nil {
			return nil, false
		}
		return *d, true
	case url.Values:
		for _, k := range sortedKeys(d) {
			v.Add(k, d[k])
		}
		return v, true
	case map[string]string:
		for _, k := range sortedKeys(d) {
			v.Add(k, d[k])
		}
		return v, true
	case map[string]interface{}:
		for _, k := range sortedKeys(d) {
			v.Add(k, d[k])
		}
		return v, true
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		v.Add(k.String(), rv.MapIndex(k).Interface())
	}
	return v, true
}

// Merge returns base followed by over, where a key of over replaces the value
// of the same key in base while keeping its position.
func Merge(base, over Values) Values {
	out := append(Values(nil), base...)
	for _, f := range over {
		out.Set(f.Key, f.Value)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsZero reports whether v should be treated as absent: nil, false, numeric
// zero, or an empty string, slice or map.
func IsZero(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
