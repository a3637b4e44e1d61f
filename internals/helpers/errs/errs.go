// file: internals/helpers/errs/errs.go
package errs

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a domain failure. Controllers map kinds onto HTTP codes,
// workflows branch on them (fail-fast kinds never leave side effects behind).
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindStateConflict
	KindValidation
	KindNotAuthorized
	KindConflict
	KindRemoteCall
	KindCompensation
)

type AppError struct {
	Kind    Kind
	Code    string // stable machine code, e.g. "classWithCodeAlreadyExist"
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func NotFound(code, msg string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: msg}
}

func StateConflict(code, msg string) *AppError {
	return &AppError{Kind: KindStateConflict, Code: code, Message: msg}
}

func Validation(code, msg string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: msg}
}

func NotAuthorized(code, msg string) *AppError {
	return &AppError{Kind: KindNotAuthorized, Code: code, Message: msg}
}

func Conflict(code, msg string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: msg}
}

// RemoteCall wraps a failed registry/remote-service call. op identifies the
// remote operation ("artifact/create", "role/addCast", ...).
func RemoteCall(op string, cause error) *AppError {
	return &AppError{Kind: KindRemoteCall, Code: "remoteCallFailed", Message: op, Cause: cause}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsKind(err error, k Kind) bool {
	if ae, ok := As(err); ok {
		return ae.Kind == k
	}
	return false
}

// CodeOf returns the stable code, or "" for foreign errors.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

func HTTPStatus(err error) int {
	ae, ok := As(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch ae.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindStateConflict, KindConflict:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotAuthorized:
		return fiber.StatusForbidden
	case KindRemoteCall:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
