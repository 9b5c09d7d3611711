package models

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrEmailTaken          = errors.New("an account with this email already exists")
	ErrDoctorExists        = errors.New("a doctor application already exists for this user")

	ErrUnknownDoctorField = errors.New("unknown doctor field")
)
