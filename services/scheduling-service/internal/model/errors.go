package model

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a rejected request. Every kind is a client-facing outcome.
type Kind string

const (
	KindInvalidConfig        Kind = "InvalidConfig"
	KindInvalidTimezone      Kind = "InvalidTimezone"
	KindInvalidTimeFormat    Kind = "InvalidTimeFormat"
	KindPastAppointment      Kind = "PastAppointment"
	KindOutsideWorkingHours  Kind = "OutsideWorkingHours"
	KindInvalidSlotAlignment Kind = "InvalidSlotAlignment"
	KindSlotAlreadyBooked    Kind = "SlotAlreadyBooked"
	KindNotFound             Kind = "NotFound"
	KindInvalidRequest       Kind = "InvalidRequest"
)

type Error struct {
	Kind    Kind
	Message string
	// NextAvailableSlot is only set for KindInvalidSlotAlignment.
	NextAvailableSlot *time.Time
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidConfig        = &Error{Kind: KindInvalidConfig}
	ErrInvalidTimezone      = &Error{Kind: KindInvalidTimezone}
	ErrInvalidTimeFormat    = &Error{Kind: KindInvalidTimeFormat}
	ErrPastAppointment      = &Error{Kind: KindPastAppointment}
	ErrOutsideWorkingHours  = &Error{Kind: KindOutsideWorkingHours}
	ErrInvalidSlotAlignment = &Error{Kind: KindInvalidSlotAlignment}
	ErrSlotAlreadyBooked    = &Error{Kind: KindSlotAlreadyBooked}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
)

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for
// infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
