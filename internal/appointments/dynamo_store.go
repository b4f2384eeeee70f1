package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// DefaultPatientIndex is the secondary index keyed by gsi1pk/gsi1sk.
const DefaultPatientIndex = "gsi1"

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore persists appointment records in a single DynamoDB table.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	indexName string
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName, indexName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("appointments: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("appointments: table name cannot be empty")
	}
	if indexName == "" {
		indexName = DefaultPatientIndex
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

func appointmentItemKey(appointmentID string) map[string]types.AttributeValue {
	key := AppointmentKey(appointmentID)
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key},
		"sk": &types.AttributeValueMemberS{Value: key},
	}
}

// Get fetches a record by appointment id.
func (s *DynamoStore) Get(ctx context.Context, appointmentID string) (*Record, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return nil, errors.New("appointments: appointment id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            appointmentItemKey(appointmentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to fetch %s: %w", appointmentID, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode %s: %w", appointmentID, err)
	}
	return &rec, nil
}

// SaveSchedule upserts the scheduling attributes of a record.
func (s *DynamoStore) SaveSchedule(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.AppointmentID) == "" {
		return errors.New("appointments: record with appointment id required")
	}
	rec.withKeys()
	rec.Status = StatusScheduled

	values := map[string]types.AttributeValue{
		":id":     &types.AttributeValueMemberS{Value: rec.AppointmentID},
		":phone":  &types.AttributeValueMemberS{Value: rec.PatientPhoneE164},
		":name":   &types.AttributeValueMemberS{Value: rec.PatientName},
		":time":   &types.AttributeValueMemberS{Value: rec.ApptTimeISO},
		":status": &types.AttributeValueMemberS{Value: string(rec.Status)},
		":g1":     &types.AttributeValueMemberS{Value: rec.GSI1PK},
		":g2":     &types.AttributeValueMemberS{Value: rec.GSI1SK},
		":r1":     &types.AttributeValueMemberS{Value: rec.R1ScheduleName},
		":r2":     &types.AttributeValueMemberS{Value: rec.R2ScheduleName},
		":esc":    &types.AttributeValueMemberS{Value: rec.EscScheduleName},
	}
	expression := "SET appointment_id = :id, patient_phone_e164 = :phone, patient_name = :name, " +
		"appt_time_iso = :time, #status = :status, gsi1pk = :g1, gsi1sk = :g2, " +
		"r1_schedule_name = :r1, r2_schedule_name = :r2, esc_schedule_name = :esc"

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       appointmentItemKey(rec.AppointmentID),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("appointments: failed to save schedule for %s: %w", rec.AppointmentID, err)
	}
	return nil
}

// MarkConfirmed sets confirmed_at and status=confirmed exactly once.
func (s *DynamoStore) MarkConfirmed(ctx context.Context, appointmentID, confirmedAt string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return errors.New("appointments: appointment id required")
	}
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              appointmentItemKey(appointmentID),
		UpdateExpression: aws.String("SET confirmed_at = :c, #status = :s"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: confirmedAt},
			":s": &types.AttributeValueMemberS{Value: string(StatusConfirmed)},
		},
		ConditionExpression:                 aws.String("attribute_exists(pk) AND attribute_not_exists(confirmed_at)"),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return ErrNotFound
			}
			return ErrAlreadyConfirmed
		}
		return fmt.Errorf("appointments: failed to confirm %s: %w", appointmentID, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *DynamoStore) Delete(ctx context.Context, appointmentID string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return errors.New("appointments: appointment id required")
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       appointmentItemKey(appointmentID),
	})
	if err != nil {
		return fmt.Errorf("appointments: failed to delete %s: %w", appointmentID, err)
	}
	return nil
}

// QueryByPatient queries the patient index for appointments after the given time.
func (s *DynamoStore) QueryByPatient(ctx context.Context, phoneE164, after string, limit int) ([]Record, error) {
	if strings.TrimSpace(phoneE164) == "" {
		return nil, errors.New("appointments: patient phone required")
	}
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.indexName),
		KeyConditionExpression: aws.String("gsi1pk = :pk AND gsi1sk > :after"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    &types.AttributeValueMemberS{Value: PatientKey(phoneE164)},
			":after": &types.AttributeValueMemberS{Value: after},
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("appointments: failed to query patient %s: %w", phoneE164, err)
	}
	records := make([]Record, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode query result: %w", err)
	}
	return records, nil
}
