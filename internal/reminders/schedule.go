package reminders

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	firstOffset      = 24 * time.Hour
	secondOffset     = 20 * time.Hour
	escalationOffset = 19 * time.Hour

	fastFirst      = 1 * time.Minute
	fastSecond     = 5 * time.Minute
	fastEscalation = 9 * time.Minute

	// PastGrace is added to now for any trigger instant that is not in the future.
	PastGrace = 60 * time.Second

	maxTriggerNameLen = 64
	utcLayout         = "2006-01-02T15:04:05Z"
	atLayout          = "2006-01-02T15:04:05"
)

var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
}

// ParseAppointmentTime parses an ISO-8601 timestamp that carries an explicit
// offset (Z or +hh:mm) and returns it in UTC.
func ParseAppointmentTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q needs an explicit UTC offset", ErrInvalidTimestamp, raw)
}

// FormatUTC renders t as a Z-suffixed UTC timestamp with second precision.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

func atExpression(t time.Time) string {
	return "at(" + t.UTC().Format(atLayout) + ")"
}

// Schedule holds the three firing instants for an appointment.
type Schedule struct {
	R1         time.Time
	R2         time.Time
	Escalation time.Time
}

// At returns the instant for the given action.
func (s Schedule) At(action Action) time.Time {
	switch action {
	case ActionFirst:
		return s.R1
	case ActionSecond:
		return s.R2
	case ActionEscalation:
		return s.Escalation
	default:
		return time.Time{}
	}
}

// ComputeSchedule returns the raw trigger instants. Fast mode ignores the
// appointment time and fires within ten minutes of now.
func ComputeSchedule(appt, now time.Time, fast bool) Schedule {
	if fast {
		now = now.UTC()
		return Schedule{
			R1:         now.Add(fastFirst),
			R2:         now.Add(fastSecond),
			Escalation: now.Add(fastEscalation),
		}
	}
	appt = appt.UTC()
	return Schedule{
		R1:         appt.Add(-firstOffset),
		R2:         appt.Add(-secondOffset),
		Escalation: appt.Add(-escalationOffset),
	}
}

// EnsureFuture pushes an instant at or before now to now plus PastGrace.
func EnsureFuture(t, now time.Time) time.Time {
	if !t.After(now) {
		return now.UTC().Add(PastGrace)
	}
	return t.UTC()
}

// EnsureFuture applies the package-level EnsureFuture to every instant.
func (s Schedule) EnsureFuture(now time.Time) Schedule {
	return Schedule{
		R1:         EnsureFuture(s.R1, now),
		R2:         EnsureFuture(s.R2, now),
		Escalation: EnsureFuture(s.Escalation, now),
	}
}

// TriggerNames are the three deterministic trigger identifiers of an appointment.
type TriggerNames struct {
	R1         string `json:"r1"`
	R2         string `json:"r2"`
	Escalation string `json:"esc"`
}

// For returns the name for the given action.
func (n TriggerNames) For(action Action) string {
	switch action {
	case ActionFirst:
		return n.R1
	case ActionSecond:
		return n.R2
	case ActionEscalation:
		return n.Escalation
	default:
		return ""
	}
}

var unsafeNameChars = regexp.MustCompile(`[^0-9A-Za-z_.\-]`)

// ValidateAppointmentID rejects ids that cannot appear verbatim in a trigger
// name. Ids are never rewritten, so distinct appointments keep distinct triggers.
func ValidateAppointmentID(appointmentID string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return fmt.Errorf("%w: empty appointment id", ErrInvalidTriggerName)
	}
	if unsafeNameChars.MatchString(appointmentID) {
		return fmt.Errorf("%w: appointment id %q may only contain letters, digits, '-', '_' and '.'", ErrInvalidTriggerName, appointmentID)
	}
	return nil
}

// Namer derives trigger names from a prefix, the deployment stage and the appointment id.
type Namer struct {
	Prefix string
	Stage  string
}

// Names returns <prefix>-<stage>-<id>-{r1,r2,esc}.
func (n Namer) Names(appointmentID string) (TriggerNames, error) {
	if err := ValidateAppointmentID(appointmentID); err != nil {
		return TriggerNames{}, err
	}
	prefix := n.Prefix
	if prefix == "" {
		prefix = "pt"
	}
	stage := n.Stage
	if stage == "" {
		stage = "dev"
	}
	if unsafeNameChars.MatchString(prefix + stage) {
		return TriggerNames{}, fmt.Errorf("%w: prefix %q or stage %q has invalid characters", ErrInvalidTriggerName, prefix, stage)
	}
	base := fmt.Sprintf("%s-%s-%s", prefix, stage, appointmentID)

	var names TriggerNames
	for _, action := range Actions() {
		name := base + "-" + action.suffix()
		if len(name) > maxTriggerNameLen {
			return TriggerNames{}, fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidTriggerName, name, maxTriggerNameLen)
		}
		switch action {
		case ActionFirst:
			names.R1 = name
		case ActionSecond:
			names.R2 = name
		case ActionEscalation:
			names.Escalation = name
		}
	}
	return names, nil
}
