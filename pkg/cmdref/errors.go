package cmdref

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass classifies a failure raised while building a Reference.
type ErrorClass string

const (
	// ClassSource indicates a document source could not be read.
	ClassSource ErrorClass = "source"

	// ClassParse indicates a source violates the YAML grammar.
	ClassParse ErrorClass = "parse"

	// ClassDuplicateFeature indicates a feature name defined more than once.
	ClassDuplicateFeature ErrorClass = "duplicate_feature"

	// ClassDuplicateKey indicates a key defined twice within one mapping.
	ClassDuplicateKey ErrorClass = "duplicate_key"

	// ClassEmptyFeature indicates a feature or branch with no content.
	ClassEmptyFeature ErrorClass = "empty_feature"

	// ClassUnsupportedKey indicates a key that is neither an attribute nor a selector.
	ClassUnsupportedKey ErrorClass = "unsupported_key"

	// ClassTypeMismatch indicates a value whose literal kind is not allowed for its attribute.
	ClassTypeMismatch ErrorClass = "type_mismatch"
)

// Sentinel errors matched by errors.Is against any *LoadError of the same class.
var (
	ErrSource           = errors.New("source unreadable")
	ErrParse            = errors.New("malformed document")
	ErrDuplicateFeature = errors.New("duplicate feature")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrEmptyFeature     = errors.New("empty feature")
	ErrUnsupportedKey   = errors.New("unsupported key")
	ErrTypeMismatch     = errors.New("type mismatch")

	// ErrUnknownFeature is returned by Lookup for a feature that was never loaded.
	ErrUnknownFeature = errors.New("unknown feature")
)

var classSentinels = map[ErrorClass]error{
	ClassSource:           ErrSource,
	ClassParse:            ErrParse,
	ClassDuplicateFeature: ErrDuplicateFeature,
	ClassDuplicateKey:     ErrDuplicateKey,
	ClassEmptyFeature:     ErrEmptyFeature,
	ClassUnsupportedKey:   ErrUnsupportedKey,
	ClassTypeMismatch:     ErrTypeMismatch,
}

// LoadError describes the first violation found while loading documents.
type LoadError struct {
	// Class is the failure classification.
	Class ErrorClass `json:"class"`

	// Source names the document the failure was found in.
	Source string `json:"source,omitempty"`

	// Line is the 1-based line of the offending node, 0 when unknown.
	Line int `json:"line,omitempty"`

	// Feature is the feature being validated, if any.
	Feature string `json:"feature,omitempty"`

	// Key is the offending mapping key, if any.
	Key string `json:"key,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func newLoadError(class ErrorClass, source string, line int, format string, args ...any) *LoadError {
	return &LoadError{
		Class:   class,
		Source:  source,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "[%s] ", e.Class)
	if e.Feature != "" {
		fmt.Fprintf(&b, "feature %q: ", e.Feature)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, "key %q: ", e.Key)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's class, or a
// *LoadError of the same class.
func (e *LoadError) Is(target error) bool {
	if t, ok := target.(*LoadError); ok {
		return e.Class == t.Class
	}
	return classSentinels[e.Class] == target
}

// WithFeature adds feature context to the error.
func (e *LoadError) WithFeature(feature string) *LoadError {
	e.Feature = feature
	return e
}

// WithKey adds key context to the error.
func (e *LoadError) WithKey(key string) *LoadError {
	e.Key = key
	return e
}

// WithCause records the underlying cause.
func (e *LoadError) WithCause(err error) *LoadError {
	e.Err = err
	return e
}

// ClassOf returns the class of the first *LoadError in err's chain, or the
// empty class when there is none.
func ClassOf(err error) ErrorClass {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Class
	}
	return ""
}
