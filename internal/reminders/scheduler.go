package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Trigger is a named one-shot firing of the dispatcher with a fixed payload.
type Trigger struct {
	Name    string
	At      time.Time
	Payload Payload
}

// TriggerInfo describes a live trigger as reported by the scheduler.
type TriggerInfo struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Input      string `json:"input,omitempty"`
}

// TriggerScheduler is the trigger adapter contract. Delete is idempotent.
type TriggerScheduler interface {
	Upsert(ctx context.Context, trigger Trigger) error
	Delete(ctx context.Context, name string) error
}

// TriggerReader is implemented by schedulers that can describe live triggers.
type TriggerReader interface {
	Get(ctx context.Context, name string) (*TriggerInfo, error)
}

type schedulerAPI interface {
	CreateSchedule(context.Context, *scheduler.CreateScheduleInput, ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error)
	UpdateSchedule(context.Context, *scheduler.UpdateScheduleInput, ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error)
	DeleteSchedule(context.Context, *scheduler.DeleteScheduleInput, ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error)
	GetSchedule(context.Context, *scheduler.GetScheduleInput, ...func(*scheduler.Options)) (*scheduler.GetScheduleOutput, error)
}

// EventBridgeConfig identifies the dispatcher target and the schedule group.
type EventBridgeConfig struct {
	TargetARN string
	RoleARN   string
	GroupName string
}

// EventBridgeScheduler upserts one-shot at() schedules in EventBridge Scheduler.
type EventBridgeScheduler struct {
	client schedulerAPI
	cfg    EventBridgeConfig
	logger *logging.Logger
}

var (
	_ TriggerScheduler = (*EventBridgeScheduler)(nil)
	_ TriggerReader    = (*EventBridgeScheduler)(nil)
)

// NewEventBridgeScheduler wires the adapter to an EventBridge Scheduler client.
func NewEventBridgeScheduler(client schedulerAPI, cfg EventBridgeConfig, logger *logging.Logger) *EventBridgeScheduler {
	if client == nil {
		panic("reminders: scheduler client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.GroupName == "" {
		cfg.GroupName = "default"
	}
	return &EventBridgeScheduler{client: client, cfg: cfg, logger: logger}
}

// Upsert creates the schedule, updating it in place when the name already exists.
func (s *EventBridgeScheduler) Upsert(ctx context.Context, trigger Trigger) error {
	if strings.TrimSpace(trigger.Name) == "" {
		return fmt.Errorf("%w: empty trigger name", ErrInvalidTriggerName)
	}
	if s.cfg.TargetARN == "" || s.cfg.RoleARN == "" {
		return errors.New("reminders: scheduler target and role ARNs are required")
	}
	input, err := json.Marshal(trigger.Payload)
	if err != nil {
		return fmt.Errorf("reminders: encode trigger payload: %w", err)
	}
	expression := atExpression(trigger.At)
	target := &types.Target{
		Arn:     aws.String(s.cfg.TargetARN),
		RoleArn: aws.String(s.cfg.RoleARN),
		Input:   aws.String(string(input)),
	}
	window := &types.FlexibleTimeWindow{Mode: types.FlexibleTimeWindowModeOff}

	_, err = s.client.CreateSchedule(ctx, &scheduler.CreateScheduleInput{
		Name:                       aws.String(trigger.Name),
		GroupName:                  aws.String(s.cfg.GroupName),
		ScheduleExpression:         aws.String(expression),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow:         window,
		Target:                     target,
	})
	if err == nil {
		s.logger.Info("created reminder trigger", "schedule", trigger.Name, "at", expression, "action", trigger.Payload.Action)
		return nil
	}
	if !isConflict(err) {
		return fmt.Errorf("reminders: create schedule %s: %w", trigger.Name, err)
	}

	_, err = s.client.UpdateSchedule(ctx, &scheduler.UpdateScheduleInput{
		Name:                       aws.String(trigger.Name),
		GroupName:                  aws.String(s.cfg.GroupName),
		ScheduleExpression:         aws.String(expression),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow:         window,
		Target:                     target,
	})
	if err != nil {
		return fmt.Errorf("reminders: update schedule %s: %w", trigger.Name, err)
	}
	s.logger.Info("updated reminder trigger", "schedule", trigger.Name, "at", expression, "action", trigger.Payload.Action)
	return nil
}

// Delete removes the schedule. A missing schedule is treated as deleted.
func (s *EventBridgeScheduler) Delete(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	_, err := s.client.DeleteSchedule(ctx, &scheduler.DeleteScheduleInput{
		Name:      aws.String(name),
		GroupName: aws.String(s.cfg.GroupName),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("reminders: delete schedule %s: %w", name, err)
	}
	return nil
}

// Get describes a live schedule.
func (s *EventBridgeScheduler) Get(ctx context.Context, name string) (*TriggerInfo, error) {
	out, err := s.client.GetSchedule(ctx, &scheduler.GetScheduleInput{
		Name:      aws.String(name),
		GroupName: aws.String(s.cfg.GroupName),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, ErrTriggerNotFound
		}
		return nil, fmt.Errorf("reminders: get schedule %s: %w", name, err)
	}
	info := &TriggerInfo{
		Name:       aws.ToString(out.Name),
		Expression: aws.ToString(out.ScheduleExpression),
	}
	if out.Target != nil {
		info.Input = aws.ToString(out.Target.Input)
	}
	return info, nil
}

func isConflict(err error) bool {
	var conflict *types.ConflictException
	if errors.As(err, &conflict) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
