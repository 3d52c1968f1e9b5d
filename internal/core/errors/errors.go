// Package errors defines the typed errors shared by the graph pipeline.
//
// A DomainError carries a stable code that callers branch on (a construction error is
// reported differently from a per-query structure error) while the underlying cause is
// kept with its stack via cockroachdb/errors.
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeValidationError    ErrorCode = "VALIDATION_ERROR"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeStructure          ErrorCode = "STRUCTURE_ERROR"
	CodeDegenerateGraph    ErrorCode = "DEGENERATE_GRAPH"
	CodeGraphDefect        ErrorCode = "GRAPH_DEFECT"
	CodeFeature            ErrorCode = "FEATURE_ERROR"
	CodeSerialization      ErrorCode = "SERIALIZATION_ERROR"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxQuery     = "query_id"
	CtxChain     = "chain"
	CtxResidue   = "residue"
	CtxFeature   = "feature"
	CtxWorker    = "worker"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to err. The cause keeps a stack trace so that %+v on the
// result shows where the underlying failure originated.
func Wrap(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: msg, Err: crdb.WithStack(err)}
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...), Err: crdb.WithStack(err)}
}

// AddContext annotates the nearest DomainError in err's chain, or wraps err as an
// internal error when there is none.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if crdb.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if crdb.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost DomainError, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if crdb.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is and As forward to cockroachdb/errors so callers need a single import.
var (
	Is = crdb.Is
	As = crdb.As
)
