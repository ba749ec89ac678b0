package cmdref

import (
	"sort"
	"strconv"
	"strings"
)

// AttrKey identifies a recognized attribute.
type AttrKey int

const (
	AttrDefaultValue AttrKey = iota + 1
	AttrDefaultOnly
	AttrConfigGet
	AttrConfigGetToken
	AttrConfigGetTokenAppend
	AttrConfigSet
	AttrConfigSetAppend
	AttrTestConfigGet
	AttrTestConfigGetRegex
	AttrTestConfigResult
)

// Cardinality declares whether an attribute reads as one value or a list.
type Cardinality uint8

const (
	// Scalar attributes are returned exactly as authored.
	Scalar Cardinality = iota
	// Sequence attributes are always returned as a sequence.
	Sequence
)

func (c Cardinality) String() string {
	if c == Sequence {
		return "sequence"
	}
	return "scalar"
}

// KindSet is a set of accepted literal kinds.
type KindSet uint8

// Kinds builds a KindSet.
func Kinds(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

func (s KindSet) String() string {
	var names []string
	for k := KindBool; k <= KindSequence; k++ {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, "|")
}

// AttrSpec is the schema entry for one attribute. For Sequence cardinality,
// Kinds lists the accepted element kinds. For Scalar cardinality, KindSequence
// in Kinds allows a list of scalar elements as a single value.
type AttrSpec struct {
	Key         AttrKey
	Name        string
	Kinds       KindSet
	Cardinality Cardinality
}

var anyScalar = Kinds(KindBool, KindString, KindInt)

var attrSpecs = [...]AttrSpec{
	{AttrDefaultValue, "default_value", anyScalar | Kinds(KindSequence), Scalar},
	{AttrDefaultOnly, "default_only", anyScalar | Kinds(KindSequence), Scalar},
	{AttrConfigGet, "config_get", Kinds(KindString), Scalar},
	{AttrConfigGetToken, "config_get_token", Kinds(KindString, KindRegexp), Sequence},
	{AttrConfigGetTokenAppend, "config_get_token_append", Kinds(KindString, KindRegexp), Sequence},
	{AttrConfigSet, "config_set", Kinds(KindString), Sequence},
	{AttrConfigSetAppend, "config_set_append", Kinds(KindString), Sequence},
	{AttrTestConfigGet, "test_config_get", Kinds(KindString), Scalar},
	{AttrTestConfigGetRegex, "test_config_get_regex", Kinds(KindRegexp), Scalar},
	{AttrTestConfigResult, "test_config_result", anyScalar, Scalar},
}

var attrByName = func() map[string]AttrKey {
	m := make(map[string]AttrKey, len(attrSpecs))
	for i, spec := range attrSpecs {
		if spec.Key != AttrKey(i+1) {
			panic("cmdref: attribute table out of order at " + spec.Name)
		}
		m[spec.Name] = spec.Key
	}
	return m
}()

// LookupAttr returns the key registered under name.
func LookupAttr(name string) (AttrKey, bool) {
	k, ok := attrByName[name]
	return k, ok
}

// AttrKeys returns every registered key in declaration order.
func AttrKeys() []AttrKey {
	keys := make([]AttrKey, len(attrSpecs))
	for i, spec := range attrSpecs {
		keys[i] = spec.Key
	}
	return keys
}

// Valid reports whether k is a registered key.
func (k AttrKey) Valid() bool { return k >= 1 && int(k) <= len(attrSpecs) }

// Spec returns the schema entry for k.
func (k AttrKey) Spec() AttrSpec {
	if !k.Valid() {
		return AttrSpec{Key: k, Name: k.String()}
	}
	return attrSpecs[k-1]
}

func (k AttrKey) String() string {
	if !k.Valid() {
		return "AttrKey(" + strconv.Itoa(int(k)) + ")"
	}
	return attrSpecs[k-1].Name
}

// ElseKey is the selector taken when no pattern selector matches.
const ElseKey = "else"

// DefaultAPIs lists the API flavors recognized as selector keys.
var DefaultAPIs = []string{"cli", "nxapi", "nxapi_structured", "grpc", "netconf"}

// apiSet is a case-insensitive set of API flavor names.
type apiSet map[string]struct{}

func newAPISet(extra ...string) (apiSet, error) {
	s := make(apiSet, len(DefaultAPIs)+len(extra))
	for _, list := range [][]string{DefaultAPIs, extra} {
		for _, name := range list {
			n := strings.ToLower(strings.TrimSpace(name))
			if err := checkSelectorName(n); err != nil {
				return nil, err
			}
			s[n] = struct{}{}
		}
	}
	return s, nil
}

func (s apiSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func (s apiSet) names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// checkSelectorName rejects API names that would shadow an attribute key or
// another selector form.
func checkSelectorName(name string) error {
	switch {
	case name == "":
		return newLoadError(ClassUnsupportedKey, "", 0, "empty API name")
	case name == ElseKey:
		return newLoadError(ClassUnsupportedKey, "", 0, "API name %q collides with the else selector", name)
	case isPatternKey(name):
		return newLoadError(ClassUnsupportedKey, "", 0, "API name %q looks like a pattern selector", name)
	}
	if _, ok := attrByName[name]; ok {
		return newLoadError(ClassUnsupportedKey, "", 0, "API name %q collides with an attribute key", name)
	}
	return nil
}

func init() {
	for _, name := range DefaultAPIs {
		if err := checkSelectorName(name); err != nil {
			panic("cmdref: " + err.Error())
		}
	}
}

// isPatternKey reports whether key has the /pattern/ selector form.
func isPatternKey(key string) bool {
	return len(key) > 2 && key[0] == '/' && key[len(key)-1] == '/'
}
