package cmdref

import (
	"regexp"
	"sort"
	"strings"
)

// CmdRef is the resolved, immutable attribute record for one feature under
// one (API, product) context.
type CmdRef struct {
	feature string
	values  map[AttrKey]Value
}

// NewCmdRef builds a record from a resolved attribute map. Sequence
// cardinality attributes holding a single scalar are wrapped into a
// one-element sequence; everything else is kept as is.
func NewCmdRef(feature string, resolved map[AttrKey]Value) *CmdRef {
	values := make(map[AttrKey]Value, len(resolved))
	for k, v := range resolved {
		if k.Spec().Cardinality == Sequence && v.Kind() != KindSequence {
			v = SequenceValue(v)
		}
		values[k] = v
	}
	return &CmdRef{feature: feature, values: values}
}

// Feature returns the feature name.
func (r *CmdRef) Feature() string { return r.feature }

// Get returns the value of k. The second result is false when k is not
// configured for this context.
func (r *CmdRef) Get(k AttrKey) (Value, bool) {
	v, ok := r.values[k]
	return v, ok
}

// Has reports whether k is configured.
func (r *CmdRef) Has(k AttrKey) bool {
	_, ok := r.values[k]
	return ok
}

// Keys returns the configured keys in schema order.
func (r *CmdRef) Keys() []AttrKey {
	keys := make([]AttrKey, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of configured attributes.
func (r *CmdRef) Len() int { return len(r.values) }

// DefaultValue returns default_value.
func (r *CmdRef) DefaultValue() (Value, bool) { return r.Get(AttrDefaultValue) }

// DefaultOnly returns default_only.
func (r *CmdRef) DefaultOnly() (Value, bool) { return r.Get(AttrDefaultOnly) }

// ConfigGet returns the config_get command.
func (r *CmdRef) ConfigGet() (string, bool) { return r.str(AttrConfigGet) }

// ConfigGetToken returns the config_get_token tokens.
func (r *CmdRef) ConfigGetToken() ([]Value, bool) { return r.seq(AttrConfigGetToken) }

// ConfigGetTokenAppend returns the config_get_token_append tokens.
func (r *CmdRef) ConfigGetTokenAppend() ([]Value, bool) { return r.seq(AttrConfigGetTokenAppend) }

// ConfigSet returns the config_set command lines.
func (r *CmdRef) ConfigSet() ([]string, bool) { return r.strs(AttrConfigSet) }

// ConfigSetAppend returns the config_set_append command lines.
func (r *CmdRef) ConfigSetAppend() ([]string, bool) { return r.strs(AttrConfigSetAppend) }

// TestConfigGet returns test_config_get.
func (r *CmdRef) TestConfigGet() (string, bool) { return r.str(AttrTestConfigGet) }

// TestConfigGetRegex returns the compiled test_config_get_regex.
func (r *CmdRef) TestConfigGetRegex() (*regexp.Regexp, bool) {
	v, ok := r.values[AttrTestConfigGetRegex]
	if !ok {
		return nil, false
	}
	return v.Regexp(), true
}

// TestConfigResult returns test_config_result.
func (r *CmdRef) TestConfigResult() (Value, bool) { return r.Get(AttrTestConfigResult) }

func (r *CmdRef) str(k AttrKey) (string, bool) {
	v, ok := r.values[k]
	if !ok {
		return "", false
	}
	return v.Str(), true
}

func (r *CmdRef) seq(k AttrKey) ([]Value, bool) {
	v, ok := r.values[k]
	if !ok {
		return nil, false
	}
	return v.Seq(), true
}

func (r *CmdRef) strs(k AttrKey) ([]string, bool) {
	elems, ok := r.seq(k)
	if !ok {
		return nil, false
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.Str()
	}
	return out, true
}

// Map renders the record as plain data keyed by attribute name.
func (r *CmdRef) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k.String()] = v.Interface()
	}
	return m
}

func (r *CmdRef) String() string {
	var b strings.Builder
	b.WriteString(r.feature)
	b.WriteString(" {")
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.String())
		b.WriteString(": ")
		b.WriteString(r.values[k].String())
	}
	b.WriteString("}")
	return b.String()
}
