package reminders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Requester hands a schedule request to whatever runs the orchestrator.
type Requester interface {
	RequestSchedule(ctx context.Context, req ScheduleRequest) error
}

type lambdaAPI interface {
	Invoke(context.Context, *lambda.InvokeInput, ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaRequester invokes the scheduler function asynchronously.
type LambdaRequester struct {
	client       lambdaAPI
	functionName string
}

func NewLambdaRequester(client lambdaAPI, functionName string) *LambdaRequester {
	if client == nil {
		panic("reminders: lambda client cannot be nil")
	}
	if functionName == "" {
		panic("reminders: scheduler function name cannot be empty")
	}
	return &LambdaRequester{client: client, functionName: functionName}
}

func (r *LambdaRequester) RequestSchedule(ctx context.Context, req ScheduleRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("reminders: encode schedule request: %w", err)
	}
	_, err = r.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(r.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("%w: invoke %s: %w", ErrUpstreamUnavailable, r.functionName, err)
	}
	return nil
}

type sqsAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSRequester enqueues schedule requests for the scheduler function.
type SQSRequester struct {
	client   sqsAPI
	queueURL string
}

func NewSQSRequester(client sqsAPI, queueURL string) *SQSRequester {
	if client == nil {
		panic("reminders: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("reminders: SQS queueURL cannot be empty")
	}
	return &SQSRequester{client: client, queueURL: queueURL}
}

func (r *SQSRequester) RequestSchedule(ctx context.Context, req ScheduleRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("reminders: encode schedule request: %w", err)
	}
	_, err = r.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to send SQS message: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

// DirectRequester runs the orchestrator in process.
type DirectRequester struct {
	orchestrator *Orchestrator
}

func NewDirectRequester(orchestrator *Orchestrator) *DirectRequester {
	if orchestrator == nil {
		panic("reminders: orchestrator cannot be nil")
	}
	return &DirectRequester{orchestrator: orchestrator}
}

func (r *DirectRequester) RequestSchedule(ctx context.Context, req ScheduleRequest) error {
	_, err := r.orchestrator.Schedule(ctx, req)
	return err
}
