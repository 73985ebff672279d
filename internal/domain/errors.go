package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrTicketsUnavailable   = errors.New("tickets unavailable")
	ErrReservationExpired   = errors.New("reservation expired")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTicketNumberTaken    = errors.New("ticket number taken")
	ErrEventHasTickets      = errors.New("event has sold tickets")
)
