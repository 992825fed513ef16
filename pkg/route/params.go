package route

import (
	"net/url"
	"sort"
	"strings"
)

// SplatKey is the parameter name that collects anonymous "*" segments.
const SplatKey = "splat"

// CapturesKey is the parameter name that collects unnamed regexp groups.
const CapturesKey = "captures"

// Params maps a parameter name to one or more values.
type Params map[string][]string

// Get returns the first value for name, or "".
func (p Params) Get(name string) string {
	if vs := p[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns every value for name.
func (p Params) Values(name string) []string {
	return p[name]
}

// Add appends a value for name.
func (p Params) Add(name, value string) {
	p[name] = append(p[name], value)
}

// Set replaces all values for name.
func (p Params) Set(name string, values ...string) {
	p[name] = values
}

// Has reports whether name is present.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of p. Cloning nil returns an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, vs := range p {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Merge returns a new map holding p overlaid with other.
// Keys present in other replace the values in p.
func (p Params) Merge(other Params) Params {
	out := p.Clone()
	for k, vs := range other {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// FromValues converts url.Values (query or form values) into Params.
func FromValues(v url.Values) Params {
	return Params(v).Clone()
}

// DecodeParams returns a copy of p with every non-blank value percent-decoded
// once. A value with an invalid escape sequence is kept as-is.
// A literal "+" is preserved: path segments do not use form encoding.
func DecodeParams(p Params) Params {
	out := make(Params, len(p))
	for k, vs := range p {
		decoded := make([]string, len(vs))
		for i, v := range vs {
			decoded[i] = decodeValue(v)
		}
		out[k] = decoded
	}
	return out
}

func decodeValue(v string) string {
	if strings.TrimSpace(v) == "" || !strings.Contains(v, "%") {
		return v
	}
	s, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return s
}
