package reminders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the fixed input carried by each reminder trigger.
type Payload struct {
	AppointmentID    string `json:"appointment_id"`
	PatientPhoneE164 string `json:"patient_phone_e164"`
	PatientName      string `json:"patient_name"`
	ApptTimeISO      string `json:"appt_time_iso"`
	Action           Action `json:"action"`
}

// Validate checks the fields the dispatcher cannot work without. The action
// text itself is checked by the dispatcher so unknown stages are reported
// rather than rejected.
func (p Payload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.AppointmentID) == "" {
		missing = append(missing, "appointment_id")
	}
	if strings.TrimSpace(p.PatientPhoneE164) == "" {
		missing = append(missing, "patient_phone_e164")
	}
	if strings.TrimSpace(string(p.Action)) == "" {
		missing = append(missing, "action")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}

// DecodePayload parses and validates a trigger payload. Unknown fields are rejected.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// DefaultPatientName stands in for a missing patient name in triggers and records.
const DefaultPatientName = "Paciente"

// ScheduleRequest asks the orchestrator to (re)schedule an appointment's reminders.
type ScheduleRequest struct {
	AppointmentID    string `json:"appointment_id"`
	PatientPhoneE164 string `json:"patient_phone_e164"`
	PatientName      string `json:"patient_name,omitempty"`
	ApptTimeISO      string `json:"appt_time_iso"`
}

// Validate checks required fields.
func (r ScheduleRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.AppointmentID) == "" {
		missing = append(missing, "appointment_id")
	}
	if strings.TrimSpace(r.PatientPhoneE164) == "" {
		missing = append(missing, "patient_phone_e164")
	}
	if strings.TrimSpace(r.ApptTimeISO) == "" {
		missing = append(missing, "appt_time_iso")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	if err := ValidateAppointmentID(r.AppointmentID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// DecodeScheduleRequest parses and validates a schedule request body.
func DecodeScheduleRequest(data []byte) (ScheduleRequest, error) {
	var req ScheduleRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ScheduleRequest{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := req.Validate(); err != nil {
		return ScheduleRequest{}, err
	}
	return req, nil
}
