package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the boundary layer can map them to
// user-facing messages without inspecting error strings.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindStateConflict
	KindReferentialIntegrity
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindStateConflict:
		return "STATE_CONFLICT"
	case KindReferentialIntegrity:
		return "REFERENTIAL_INTEGRITY"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// Error is the typed failure returned by the engines.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that wrapped errors carrying a different message
// still compare equal to the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Expected is true for every classified failure. Only untyped errors are
// operational faults.
func (e *Error) Expected() bool {
	return e.Kind != KindInternal
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

var (
	ErrVehicleUnavailable  = &Error{Kind: KindValidation, Code: "VEHICLE_UNAVAILABLE", Message: "vehicle is not available for rental"}
	ErrInvalidVehicleState = &Error{Kind: KindValidation, Code: "INVALID_VEHICLE_STATE", Message: "vehicle state does not allow this transition"}
	ErrInvalidMileage      = &Error{Kind: KindValidation, Code: "INVALID_MILEAGE", Message: "end mileage must be greater than start mileage"}
	ErrInvalidInput        = &Error{Kind: KindValidation, Code: "INVALID_INPUT", Message: "invalid input"}
	ErrDuplicate           = &Error{Kind: KindValidation, Code: "DUPLICATE", Message: "a record with the same unique value already exists"}

	ErrClosedRental     = &Error{Kind: KindStateConflict, Code: "RENTAL_CLOSED", Message: "rental is closed and cannot be changed"}
	ErrOpenRental       = &Error{Kind: KindStateConflict, Code: "RENTAL_OPEN", Message: "only closed rentals can be deleted"}
	ErrRentalNotActive  = &Error{Kind: KindStateConflict, Code: "RENTAL_NOT_ACTIVE", Message: "payments can only be recorded for active rentals"}
	ErrConcurrentUpdate = &Error{Kind: KindStateConflict, Code: "CONCURRENT_UPDATE", Message: "record was modified by another request"}
	ErrVehicleRented    = &Error{Kind: KindStateConflict, Code: "VEHICLE_RENTED", Message: "vehicle status is managed by its active rental"}

	ErrClientHasRentals  = &Error{Kind: KindReferentialIntegrity, Code: "CLIENT_HAS_RENTALS", Message: "client has rentals and cannot be deleted"}
	ErrVehicleHasRentals = &Error{Kind: KindReferentialIntegrity, Code: "VEHICLE_HAS_RENTALS", Message: "vehicle is referenced by rentals and cannot be deleted"}
	ErrReferenced        = &Error{Kind: KindReferentialIntegrity, Code: "REFERENCED", Message: "record is referenced by other records"}

	ErrNotFound = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "record not found"}
)

// NotFound builds a NotFound error naming the missing entity.
func NotFound(entity string, id int32) *Error {
	return ErrNotFound.WithMessage("%s %d not found", entity, id)
}

// Invalid builds a validation error for a bad input field.
func Invalid(format string, args ...any) *Error {
	return ErrInvalidInput.WithMessage(format, args...)
}

// KindOf reports the classification of err, KindInternal when err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the error code of err, "INTERNAL_ERROR" when untyped.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}
