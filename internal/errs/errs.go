// Package errs defines the closed error-kind enumeration that every
// Tusk component returns through, per the propagation policy of
// spec.md §7: importers and exporters return on the first error, the
// top-level conversion decorates it with a file path, and nothing
// downstream accumulates a list of errors.
package errs

import "fmt"

// Kind is the closed set of error categories a conversion can fail with.
type Kind int

const (
	// SchemaErrorKind covers failures loading or resolving a grammar.
	SchemaErrorKind Kind = iota
	// ParseErrorKind covers malformed source: XML well-formedness or
	// LilyPond syntax.
	ParseErrorKind
	// UnknownEnumValueKind covers a value outside a closed vocabulary.
	UnknownEnumValueKind
	// UnknownChildKind covers an element not listed as a permitted
	// child of its parent, in strict mode.
	UnknownChildKind
	// UnresolvedReferenceKind covers a dangling cross-reference.
	UnresolvedReferenceKind
	// VersionUnsupportedKind covers an input version outside the
	// accepted floor/ceiling.
	VersionUnsupportedKind
	// TranslationUnmappableKind covers a source construct with no
	// canonical representation, surfaced only in strict mode.
	TranslationUnmappableKind
	// InvariantViolationKind covers an internal consistency failure
	// that should never surface in practice.
	InvariantViolationKind
)

func (k Kind) String() string {
	switch k {
	case SchemaErrorKind:
		return "SchemaError"
	case ParseErrorKind:
		return "ParseError"
	case UnknownEnumValueKind:
		return "UnknownEnumValue"
	case UnknownChildKind:
		return "UnknownChild"
	case UnresolvedReferenceKind:
		return "UnresolvedReference"
	case VersionUnsupportedKind:
		return "VersionUnsupported"
	case TranslationUnmappableKind:
		return "TranslationUnmappable"
	case InvariantViolationKind:
		return "InvariantViolation"
	default:
		return "UnknownKind"
	}
}

// Error is the single error type returned by every Tusk package. Path
// is an XML-path-shaped location string (e.g. "/mei/music/body/mdiv[2]/score/note[5]")
// or, for LilyPond input, a line:column location.
type Error struct {
	Kind   Kind
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// WithPath returns a copy of the error decorated with a containing
// file path, per the top-level conversion's decoration policy.
func (e *Error) WithPath(file string) *Error {
	cp := *e
	if cp.Path == "" {
		cp.Path = file
	} else {
		cp.Path = file + ":" + cp.Path
	}
	return &cp
}

func New(kind Kind, path, detail string) *Error {
	return &Error{Kind: kind, Path: path, Detail: detail}
}

func Wrap(kind Kind, path, detail string, err error) *Error {
	return &Error{Kind: kind, Path: path, Detail: detail, Err: err}
}

// SchemaError reports a Schema Loader failure (spec.md §4.1).
func SchemaError(path, detail string, err error) *Error {
	return Wrap(SchemaErrorKind, path, detail, err)
}

// ParseError reports malformed source input.
func ParseError(format, location, detail string) *Error {
	return New(ParseErrorKind, location, fmt.Sprintf("%s: %s", format, detail))
}

// UnknownEnumValue reports a value absent from a closed vocabulary.
func UnknownEnumValue(typeName, value, path string) *Error {
	return New(UnknownEnumValueKind, path, fmt.Sprintf("value %q is not a member of enumeration %q", value, typeName))
}

// UnknownChild reports an element unknown to its parent's content model.
func UnknownChild(parent, child, path string) *Error {
	return New(UnknownChildKind, path, fmt.Sprintf("%q is not a permitted child of %q", child, parent))
}

// UnresolvedReference reports a dangling cross-reference.
func UnresolvedReference(referrer, referent, path string) *Error {
	return New(UnresolvedReferenceKind, path, fmt.Sprintf("%q refers to identifier %q, which does not exist in this document", referrer, referent))
}

// VersionUnsupported reports an input version outside the accepted range.
func VersionUnsupported(format, version string) *Error {
	return New(VersionUnsupportedKind, "", fmt.Sprintf("%s version %q is not supported", format, version))
}

// TranslationUnmappable reports a strict-mode-only translation failure.
func TranslationUnmappable(sourceKind, path, lossCategory string) *Error {
	return New(TranslationUnmappableKind, path, fmt.Sprintf("%q has no canonical representation (loss category: %s)", sourceKind, lossCategory))
}

// InvariantViolation reports an internal consistency failure.
func InvariantViolation(kind, path string) *Error {
	return New(InvariantViolationKind, path, fmt.Sprintf("invariant violated: %s", kind))
}

// Is reports whether err is a Tusk *Error of the given kind, unwrapping
// through any wrapper chain.
func Is(err error, kind Kind) bool {
	var te *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			te = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return te != nil && te.Kind == kind
}
