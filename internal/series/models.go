package series

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Record is a single observation of a series. T is a date-like key whose
// leading digits are the year, so keys sort lexicographically by date.
type Record struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// Routes maps a data-type alias (e.g. "temperature") to the route of its JSON document.
type Routes map[string]string

// Aliases returns the configured aliases in sorted order.
func (r Routes) Aliases() []string {
	aliases := make([]string, 0, len(r))
	for alias := range r {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Clone returns a copy that does not share storage with r.
func (r Routes) Clone() Routes {
	if r == nil {
		return nil
	}
	out := make(Routes, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter restricts a query to a year range. Both bounds are optional and
// inclusive. An inverted range is not an error; it matches nothing.
type Filter struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// Years is a shorthand for a filter bounded on both sides.
func Years(from, to int) Filter {
	return Filter{From: &from, To: &to}
}

// KeyRange is a half-open interval [Lower, Upper) over record keys.
// An empty bound means the interval is unbounded on that side.
type KeyRange struct {
	Lower string
	Upper string
}

// KeyRange converts the filter into a key interval: From is the inclusive
// lower bound and To+1 the exclusive upper bound.
func (f Filter) KeyRange() KeyRange {
	var kr KeyRange
	if f.From != nil {
		kr.Lower = strconv.Itoa(*f.From)
	}
	if f.To != nil {
		kr.Upper = strconv.Itoa(*f.To + 1)
	}
	return kr
}

// Empty reports whether no key can fall inside the interval.
func (kr KeyRange) Empty() bool {
	return kr.Lower != "" && kr.Upper != "" && kr.Lower >= kr.Upper
}

// Contains reports whether key lies inside the interval.
func (kr KeyRange) Contains(key string) bool {
	if kr.Lower != "" && key < kr.Lower {
		return false
	}
	if kr.Upper != "" && key >= kr.Upper {
		return false
	}
	return true
}

// Meta carries summary statistics of a ResultSet.
// For an empty data set MinValue is +Inf and MaxValue is -Inf.
type Meta struct {
	MinValue float64
	MaxValue float64
}

type metaJSON struct {
	MinValue *float64 `json:"minValue"`
	MaxValue *float64 `json:"maxValue"`
}

// MarshalJSON encodes infinite bounds as null since JSON has no infinity.
func (m Meta) MarshalJSON() ([]byte, error) {
	var out metaJSON
	if !math.IsInf(m.MinValue, 0) {
		out.MinValue = &m.MinValue
	}
	if !math.IsInf(m.MaxValue, 0) {
		out.MaxValue = &m.MaxValue
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the empty-set sentinels for null bounds.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var in metaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.MinValue = math.Inf(1)
	m.MaxValue = math.Inf(-1)
	if in.MinValue != nil {
		m.MinValue = *in.MinValue
	}
	if in.MaxValue != nil {
		m.MaxValue = *in.MaxValue
	}
	return nil
}

// ResultSet is what a data request resolves to.
type ResultSet struct {
	Data []Record `json:"data"`
	Meta Meta     `json:"meta"`
}
