// Package errors defines the structured error taxonomy shared by the
// template engine, the pipe registry and the render tree.
//
// Every failure surfaced by markup is a *MarkupError. Two errors are equal
// under errors.Is when their Type and Code match, so callers can test against
// the exported sentinels without caring about the message:
//
//	if errors.Is(err, markuperrors.ErrIndexOutOfBounds) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType groups error codes by the subsystem that raises them.
type ErrorType string

const (
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypePipe     ErrorType = "pipe"
	ErrorTypeElement  ErrorType = "element"
	ErrorTypeDocument ErrorType = "document"
	ErrorTypeConfig   ErrorType = "config"
)

// Error codes.
const (
	ErrCodePropertyNotFound         = "ERR_PROPERTY_NOT_FOUND"
	ErrCodeNotAnArray               = "ERR_NOT_AN_ARRAY"
	ErrCodeIndexOutOfBounds         = "ERR_INDEX_OUT_OF_BOUNDS"
	ErrCodeUnknownFilter            = "ERR_UNKNOWN_FILTER"
	ErrCodeDuplicateName            = "ERR_DUPLICATE_NAME"
	ErrCodeInvalidName              = "ERR_INVALID_NAME"
	ErrCodeSelfAlias                = "ERR_SELF_ALIAS"
	ErrCodeConflictingOptions       = "ERR_CONFLICTING_OPTIONS"
	ErrCodeUnknownPipeToCopyOrAlias = "ERR_UNKNOWN_PIPE_TO_COPY_OR_ALIAS"
	ErrCodeUnknownPipeToUpdate      = "ERR_UNKNOWN_PIPE_TO_UPDATE"
	ErrCodeNilPipe                  = "ERR_NIL_PIPE"
	ErrCodeInvalidTagName           = "ERR_INVALID_TAG_NAME"
	ErrCodeInvalidComposition       = "ERR_INVALID_COMPOSITION"
	ErrCodeElementArguments         = "ERR_ELEMENT_ARGUMENTS"
	ErrCodeDuplicateDefinition      = "ERR_DUPLICATE_DEFINITION"
	ErrCodeUnknownDefinition        = "ERR_UNKNOWN_DEFINITION"
	ErrCodeDocument                 = "ERR_DOCUMENT"
	ErrCodeConfigInvalid            = "ERR_CONFIG_INVALID"
)

// Sentinels for errors.Is. Only Type and Code take part in the comparison.
var (
	ErrPropertyNotFound         = &MarkupError{Type: ErrorTypeTemplate, Code: ErrCodePropertyNotFound}
	ErrNotAnArray               = &MarkupError{Type: ErrorTypeTemplate, Code: ErrCodeNotAnArray}
	ErrIndexOutOfBounds         = &MarkupError{Type: ErrorTypeTemplate, Code: ErrCodeIndexOutOfBounds}
	ErrUnknownFilter            = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeUnknownFilter}
	ErrDuplicateName            = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeDuplicateName}
	ErrInvalidName              = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeInvalidName}
	ErrSelfAlias                = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeSelfAlias}
	ErrConflictingOptions       = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeConflictingOptions}
	ErrUnknownPipeToCopyOrAlias = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeUnknownPipeToCopyOrAlias}
	ErrUnknownPipeToUpdate      = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeUnknownPipeToUpdate}
	ErrNilPipe                  = &MarkupError{Type: ErrorTypePipe, Code: ErrCodeNilPipe}
	ErrInvalidTagName           = &MarkupError{Type: ErrorTypeElement, Code: ErrCodeInvalidTagName}
	ErrInvalidComposition       = &MarkupError{Type: ErrorTypeElement, Code: ErrCodeInvalidComposition}
	ErrElementArguments         = &MarkupError{Type: ErrorTypeElement, Code: ErrCodeElementArguments}
	ErrDuplicateDefinition      = &MarkupError{Type: ErrorTypeElement, Code: ErrCodeDuplicateDefinition}
	ErrUnknownDefinition        = &MarkupError{Type: ErrorTypeElement, Code: ErrCodeUnknownDefinition}
	ErrDocument                 = &MarkupError{Type: ErrorTypeDocument, Code: ErrCodeDocument}
	ErrConfigInvalid            = &MarkupError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}
)

// MarkupError is a structured error type with context.
type MarkupError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *MarkupError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *MarkupError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *MarkupError) Is(target error) bool {
	var t *MarkupError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *MarkupError) WithContext(key string, value interface{}) *MarkupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithCause attaches an underlying error.
func (e *MarkupError) WithCause(cause error) *MarkupError {
	e.Cause = cause

	return e
}

// NewTemplateError creates a path resolution error.
func NewTemplateError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeTemplate,
		Code:    code,
		Message: message,
	}
}

// NewPipeError creates a pipe registry error.
func NewPipeError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypePipe,
		Code:    code,
		Message: message,
	}
}

// NewElementError creates an element construction error.
func NewElementError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeElement,
		Code:    code,
		Message: message,
	}
}

// NewDocumentError creates a document decoding error.
func NewDocumentError(message string, cause error) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeDocument,
		Code:    ErrCodeDocument,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
	}
}

// Constructors for the path resolution failures. The messages are part of
// the observable behaviour and are asserted on by hosts.

// PropertyNotFound reports a required segment missing from the root context
// (parent == "") or from the value under parent.
func PropertyNotFound(key, parent string) *MarkupError {
	if parent == "" {
		return NewTemplateError(ErrCodePropertyNotFound, key+" is undefined.").
			WithContext("key", key)
	}

	return NewTemplateError(ErrCodePropertyNotFound, fmt.Sprintf("%s is not a property of %s.", key, parent)).
		WithContext("key", key).
		WithContext("parent", parent)
}

// NotAnArray reports an indexed segment whose value is not a sequence.
func NotAnArray(key string) *MarkupError {
	return NewTemplateError(ErrCodeNotAnArray, key+" is not an array.").
		WithContext("key", key)
}

// IndexOutOfBounds reports an index outside [0, length).
func IndexOutOfBounds(key string, index int) *MarkupError {
	return NewTemplateError(ErrCodeIndexOutOfBounds, fmt.Sprintf("Index out of bounds: %s[%d].", key, index)).
		WithContext("key", key).
		WithContext("index", index)
}

// UnknownFilter reports a pipe name with no registration.
func UnknownFilter(name string) *MarkupError {
	return NewPipeError(ErrCodeUnknownFilter, fmt.Sprintf("Pipe does not exist: %s.", name))
}

// DuplicateName reports a registration under a taken name.
func DuplicateName(name string) *MarkupError {
	return NewPipeError(ErrCodeDuplicateName, fmt.Sprintf("Pipe already exists: %s.", name))
}

// InvalidName reports a pipe name that is not purely alphabetic.
func InvalidName(name string) *MarkupError {
	return NewPipeError(ErrCodeInvalidName, "Pipe names must only contain letters. Whitespaces are trimmed.").
		WithContext("name", name)
}

// SelfAlias reports an alias whose new name equals its target.
func SelfAlias(name string) *MarkupError {
	return NewPipeError(ErrCodeSelfAlias, fmt.Sprintf("Pipe cannot alias itself: %s.", name))
}

// ConflictingOptions reports a copy that asks for both an alias and a wrapper.
func ConflictingOptions(name string) *MarkupError {
	return NewPipeError(ErrCodeConflictingOptions, fmt.Sprintf("Pipe %s cannot be copied as an alias with a wrapper.", name))
}

// UnknownPipeToCopyOrAlias reports a copy or alias of a missing pipe.
func UnknownPipeToCopyOrAlias(name string) *MarkupError {
	return NewPipeError(ErrCodeUnknownPipeToCopyOrAlias, fmt.Sprintf("Cannot copy or alias a pipe that does not exist: %s.", name))
}

// UnknownPipeToUpdate reports an update of a missing pipe.
func UnknownPipeToUpdate(name string) *MarkupError {
	return NewPipeError(ErrCodeUnknownPipeToUpdate, fmt.Sprintf("Cannot update a pipe that does not exist: %s.", name))
}

// NilPipe reports a registration or update of name without a function.
func NilPipe(name string) *MarkupError {
	return NewPipeError(ErrCodeNilPipe, fmt.Sprintf("Pipe %s has no function.", name)).
		WithContext("name", name)
}

// Code returns the code of the first MarkupError in err's chain, or "".
func Code(err error) string {
	var me *MarkupError
	if errors.As(err, &me) {
		return me.Code
	}

	return ""
}

// IsTemplateError reports whether err was raised during path resolution.
func IsTemplateError(err error) bool {
	var me *MarkupError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeTemplate
	}

	return false
}

// IsPipeError reports whether err was raised by the pipe registry.
func IsPipeError(err error) bool {
	var me *MarkupError
	if errors.As(err, &me) {
		return me.Type == ErrorTypePipe
	}

	return false
}
