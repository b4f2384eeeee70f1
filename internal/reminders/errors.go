package reminders

import "errors"

var (
	// ErrInvalidTimestamp is returned when an appointment time cannot be parsed
	// or carries no explicit UTC offset.
	ErrInvalidTimestamp = errors.New("reminders: invalid appointment timestamp")
	// ErrInvalidPayload is returned when a trigger payload or schedule request
	// is missing required fields.
	ErrInvalidPayload = errors.New("reminders: invalid payload")
	// ErrInvalidTriggerName is returned when an appointment id has characters a
	// trigger name cannot carry or the derived name exceeds the scheduler's limits.
	ErrInvalidTriggerName = errors.New("reminders: invalid trigger name")
	// ErrUpstreamUnavailable wraps failures of the record store, the trigger
	// scheduler or the messaging collaborator.
	ErrUpstreamUnavailable = errors.New("reminders: upstream unavailable")
	// ErrTriggerNotFound is returned by trigger lookups for unknown names.
	ErrTriggerNotFound = errors.New("reminders: trigger not found")
)
