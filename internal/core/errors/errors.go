package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Slicing failures.
	CodeConfigurationFormat    ErrorCode = "CONFIGURATION_FORMAT"
	CodeUndeclaredService      ErrorCode = "UNDECLARED_SERVICE"
	CodeParameterConfiguration ErrorCode = "PARAMETER_CONFIGURATION"
	CodeUnresolvedReference    ErrorCode = "UNRESOLVED_REFERENCE"
	CodeCyclicReference        ErrorCode = "CYCLIC_REFERENCE"
	CodeInvalidProgram         ErrorCode = "INVALID_PROGRAM"
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
	CtxService   = "service"
	CtxServices  = "services"
	CtxSymbol    = "symbol"
	CtxLine      = "line"
	CtxCycle     = "cycle"
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

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// Join combines independent failures; IsCode and Codes see every member.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// AddContext attaches a key to the first DomainError in err's chain, or
// wraps err as an internal error carrying the key.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
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

// IsCode reports whether any DomainError in err's tree has the code.
// Unlike errors.As it looks past the first match, so every member of an
// errors.Join is considered.
func IsCode(err error, code ErrorCode) bool {
	found := false
	walk(err, func(de *DomainError) bool {
		found = de.Code == code
		return !found
	})
	return found
}

// Codes lists the distinct codes found in err's tree, sorted.
func Codes(err error) []ErrorCode {
	seen := make(map[ErrorCode]bool)
	walk(err, func(de *DomainError) bool {
		seen[de.Code] = true
		return true
	})
	out := make([]ErrorCode, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CodeOf returns the code of the first DomainError in err's tree, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	code := CodeInternal
	walk(err, func(de *DomainError) bool {
		code = de.Code
		return false
	})
	return code
}

// Summary renders a joined error one member per line.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		lines := make([]string, 0, len(joined.Unwrap()))
		for _, member := range joined.Unwrap() {
			lines = append(lines, member.Error())
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}

// walk visits every DomainError in err's tree depth first until visit
// returns false.
func walk(err error, visit func(*DomainError) bool) bool {
	if err == nil {
		return true
	}
	if de, ok := err.(*DomainError); ok {
		if !visit(de) {
			return false
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, member := range u.Unwrap() {
			if !walk(member, visit) {
				return false
			}
		}
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	}
	return true
}
