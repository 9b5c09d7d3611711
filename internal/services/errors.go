package services

import (
	"errors"
	"strings"
)

var (
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrNoPendingUpdates        = errors.New("no pending updates to review")
	ErrInvalidAction           = errors.New("invalid action")
	ErrNotPendingApplication   = errors.New("doctor application is not pending")

	ErrFileTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedFileType = errors.New("only PDF, JPG and PNG files are allowed")
	ErrFileMissing         = errors.New("file not found on server")

	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrAlreadyVerified    = errors.New("email is already verified")
)

// ForbiddenError carries the user-visible reason of an authorization
// failure. errors.Is(err, ErrForbidden) holds for every ForbiddenError.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func invalid(fields ...string) error {
	return &ValidationError{Fields: fields}
}
