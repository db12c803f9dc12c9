package filtered

import "fmt"

// ErrorCode classifies an Error per spec §7. Every error the package
// returns synchronously carries one of these; there is no retry and no
// partial-result behavior.
type ErrorCode string

const (
	// CodeUnknownAttribute: a query referenced an attribute that was
	// never registered with the IndexSet.
	CodeUnknownAttribute ErrorCode = "UnknownAttribute"
	// CodeMissingObject: Remove or Update was called on an object the
	// set does not contain.
	CodeMissingObject ErrorCode = "MissingObject"
	// CodeTypeViolation: Match or Exclude was not a map, or an object
	// passed to Add is not a non-nil pointer or map.
	CodeTypeViolation ErrorCode = "TypeViolation"
	// CodeInternalInvariant: a bucket-consistency invariant was
	// violated. Unreachable in correct code; see IndexSet.Remove for how
	// it is logged before returning.
	CodeInternalInvariant ErrorCode = "InternalInvariant"
)

// Error is the error type every public IndexSet operation returns.
// Attr is set when the error concerns a specific attribute; it is
// empty otherwise.
type Error struct {
	Code ErrorCode
	Attr string
	Msg  string
}

func (e *Error) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("filtered: %s: %s (attribute %q)", e.Code, e.Msg, e.Attr)
	}
	return fmt.Sprintf("filtered: %s: %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same Code, so
// callers can use errors.Is(err, filtered.ErrMissingObject) without
// caring about the Attr/Msg detail carried on a particular instance.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is comparisons. Errors actually returned
// by IndexSet operations may carry additional detail (Attr, a more
// specific Msg) but always compare equal to these under errors.Is.
var (
	ErrUnknownAttribute  = &Error{Code: CodeUnknownAttribute, Msg: "attribute not registered"}
	ErrMissingObject     = &Error{Code: CodeMissingObject, Msg: "object not in set"}
	ErrTypeViolation     = &Error{Code: CodeTypeViolation, Msg: "match/exclude must be a map"}
	ErrInternalInvariant = &Error{Code: CodeInternalInvariant, Msg: "internal invariant violation"}
)

func unknownAttributeErr(attr string) error {
	return &Error{Code: CodeUnknownAttribute, Attr: attr, Msg: "attribute not registered"}
}
