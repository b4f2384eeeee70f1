package appointments

import (
	"errors"
	"strings"
)

// Status is the persisted lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
)

var (
	// ErrNotFound indicates the appointment record does not exist.
	ErrNotFound = errors.New("appointments: record not found")
	// ErrAlreadyConfirmed is returned by MarkConfirmed when confirmed_at is already set.
	ErrAlreadyConfirmed = errors.New("appointments: already confirmed")
)

const (
	appointmentKeyPrefix = "APPT#"
	patientKeyPrefix     = "PATIENT#"
)

// Record is the durable state of one appointment.
type Record struct {
	PK string `dynamodbav:"pk" json:"-"`
	SK string `dynamodbav:"sk" json:"-"`

	AppointmentID    string `dynamodbav:"appointment_id" json:"appointment_id"`
	PatientPhoneE164 string `dynamodbav:"patient_phone_e164" json:"patient_phone_e164"`
	PatientName      string `dynamodbav:"patient_name,omitempty" json:"patient_name,omitempty"`
	ApptTimeISO      string `dynamodbav:"appt_time_iso" json:"appt_time_iso"`
	Status           Status `dynamodbav:"status" json:"status"`
	ConfirmedAt      string `dynamodbav:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`

	R1ScheduleName  string `dynamodbav:"r1_schedule_name,omitempty" json:"r1_schedule_name,omitempty"`
	R2ScheduleName  string `dynamodbav:"r2_schedule_name,omitempty" json:"r2_schedule_name,omitempty"`
	EscScheduleName string `dynamodbav:"esc_schedule_name,omitempty" json:"esc_schedule_name,omitempty"`

	// Secondary index attributes: patient partition, appointment time sort.
	GSI1PK string `dynamodbav:"gsi1pk,omitempty" json:"-"`
	GSI1SK string `dynamodbav:"gsi1sk,omitempty" json:"-"`
}

// Confirmed reports whether confirmed_at has been recorded.
func (r *Record) Confirmed() bool {
	return r != nil && strings.TrimSpace(r.ConfirmedAt) != ""
}

// EffectiveStatus derives the status from confirmed_at. A rescheduled
// appointment keeps its confirmation even though the stored status is reset.
func (r *Record) EffectiveStatus() Status {
	if r.Confirmed() {
		return StatusConfirmed
	}
	return StatusScheduled
}

// ScheduleNames returns the r1, r2 and escalation trigger names in order.
func (r *Record) ScheduleNames() []string {
	if r == nil {
		return nil
	}
	return []string{r.R1ScheduleName, r.R2ScheduleName, r.EscScheduleName}
}

// AppointmentKey builds the pk/sk value for an appointment id.
func AppointmentKey(appointmentID string) string {
	return appointmentKeyPrefix + appointmentID
}

// PatientKey builds the secondary index partition value for a phone.
func PatientKey(phoneE164 string) string {
	return patientKeyPrefix + phoneE164
}

// withKeys fills the key attributes derived from the record's fields.
func (r *Record) withKeys() *Record {
	r.PK = AppointmentKey(r.AppointmentID)
	r.SK = r.PK
	r.GSI1PK = PatientKey(r.PatientPhoneE164)
	r.GSI1SK = r.ApptTimeISO
	return r
}
