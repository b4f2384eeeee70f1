package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// UnconfirmedStatus is the owner alert status sent when both reminders went unanswered.
const UnconfirmedStatus = "sin confirmar tras 2 recordatorios"

// ReminderTemplates names the patient templates per reminder stage.
type ReminderTemplates struct {
	First    string
	Second   string
	Language string
}

// ReminderMessenger delivers reminder traffic over WhatsApp.
type ReminderMessenger struct {
	templates TemplateSender
	owner     *OwnerNotifier
	names     ReminderTemplates
	location  *time.Location
	logger    *logging.Logger
}

var _ reminders.Messenger = (*ReminderMessenger)(nil)

func NewReminderMessenger(templates TemplateSender, owner *OwnerNotifier, names ReminderTemplates, location *time.Location, logger *logging.Logger) *ReminderMessenger {
	if templates == nil || owner == nil {
		panic("notify: reminder messenger requires a template sender and owner notifier")
	}
	if location == nil {
		location = time.UTC
	}
	if names.Language == "" {
		names.Language = "es_EC"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderMessenger{templates: templates, owner: owner, names: names, location: location, logger: logger}
}

// SendReminder sends the stage template to the patient.
func (m *ReminderMessenger) SendReminder(ctx context.Context, rec appointments.Record, action reminders.Action) error {
	var template string
	switch action {
	case reminders.ActionFirst:
		template = m.names.First
	case reminders.ActionSecond:
		template = m.names.Second
	default:
		return fmt.Errorf("notify: no patient template for action %q", action)
	}
	params := []whatsapp.Param{
		{Name: "paciente", Value: patientLabel(rec)},
		{Name: "fecha_hora", Value: m.LocalTime(rec.ApptTimeISO)},
	}
	resp, err := m.templates.SendTemplate(ctx, rec.PatientPhoneE164, template, m.names.Language, params)
	if err != nil {
		return err
	}
	m.logger.Info("patient reminder sent", "appointment_id", rec.AppointmentID, "action", action, "message_id", resp.MessageID())
	return nil
}

// AlertOwnerUnconfirmed tells the owner the patient never confirmed.
func (m *ReminderMessenger) AlertOwnerUnconfirmed(ctx context.Context, rec appointments.Record) error {
	return m.owner.Notify(ctx, Alert{
		Patient: fmt.Sprintf("%s (%s)", patientLabel(rec), rec.PatientPhoneE164),
		When:    m.LocalTime(rec.ApptTimeISO),
		Status:  UnconfirmedStatus,
	})
}

// LocalTime renders a UTC timestamp in the clinic timezone, or returns it unchanged.
func (m *ReminderMessenger) LocalTime(iso string) string {
	t, err := reminders.ParseAppointmentTime(iso)
	if err != nil {
		return iso
	}
	return t.In(m.location).Format("02/01/2006 15:04")
}

func patientLabel(rec appointments.Record) string {
	if rec.PatientName != "" {
		return rec.PatientName
	}
	return "paciente"
}
