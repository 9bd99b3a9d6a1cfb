package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// sortKeyLayout is fixed width so sort keys order chronologically.
const sortKeyLayout = "2006-01-02T15:04:05.000000Z"

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type record struct {
	ReservationID int64  `dynamodbav:"reservationId"`
	SortKey       string `dynamodbav:"sk"`
	EventID       string `dynamodbav:"eventId"`
	EventType     string `dynamodbav:"eventType"`
	FromStatus    string `dynamodbav:"fromStatus,omitempty"`
	ToStatus      string `dynamodbav:"toStatus"`
	Actor         string `dynamodbav:"actor"`
	OccurredAt    string `dynamodbav:"occurredAt"`
}

// DynamoStore writes history to a DynamoDB table keyed by reservationId
// (partition) and occurredAt#eventId (sort).
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("audit: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("audit: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{client: client, tableName: tableName, logger: logger}
}

// SortKey builds the range key for an entry.
func SortKey(occurredAt time.Time, eventID string) string {
	return occurredAt.UTC().Format(sortKeyLayout) + "#" + eventID
}

// Record stores entry. A redelivered event hits the condition and is
// treated as already recorded.
func (s *DynamoStore) Record(ctx context.Context, entry Entry) error {
	if entry.ReservationID <= 0 || entry.EventID == "" {
		return errors.New("audit: reservation id and event id required")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(record{
		ReservationID: entry.ReservationID,
		SortKey:       SortKey(entry.OccurredAt, entry.EventID),
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		FromStatus:    entry.FromStatus,
		ToStatus:      entry.ToStatus,
		Actor:         entry.Actor,
		OccurredAt:    entry.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			s.logger.Debug("audit: entry already recorded", "reservation_id", entry.ReservationID, "event_id", entry.EventID)
			return nil
		}
		return fmt.Errorf("audit: put entry: %w", err)
	}
	return nil
}

// List returns the history of a reservation oldest first.
func (s *DynamoStore) List(ctx context.Context, reservationID int64) ([]Entry, error) {
	var (
		out   []Entry
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("reservationId = :rid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rid": &types.AttributeValueMemberN{Value: strconv.FormatInt(reservationID, 10)},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("audit: query history: %w", err)
		}

		var records []record
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &records); err != nil {
			return nil, fmt.Errorf("audit: decode history: %w", err)
		}
		for _, rec := range records {
			at, _ := time.Parse(time.RFC3339Nano, rec.OccurredAt)
			out = append(out, Entry{
				ReservationID: rec.ReservationID,
				EventID:       rec.EventID,
				EventType:     rec.EventType,
				FromStatus:    rec.FromStatus,
				ToStatus:      rec.ToStatus,
				Actor:         rec.Actor,
				OccurredAt:    at,
			})
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		start = resp.LastEvaluatedKey
	}
	return out, nil
}
