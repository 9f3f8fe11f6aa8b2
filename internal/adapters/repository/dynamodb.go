package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/mingle/internal/domain/model"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoTables names the tables used by DynamoStore.
//
//	Submissions: partition key eventId, sort key userId
//	Profiles:    partition key userId
//	Grids:       partition key userId, sort key eventId
type DynamoTables struct {
	Submissions string
	Profiles    string
	Grids       string
}

// DynamoStore is a Backend on DynamoDB.
type DynamoStore struct {
	client DynamoAPI
	tables DynamoTables
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client DynamoAPI, tables DynamoTables) *DynamoStore {
	return &DynamoStore{client: client, tables: tables}
}

// OpenDynamoStore builds a client from the default AWS credential chain.
// A non-empty endpoint points the client at a local DynamoDB.
func OpenDynamoStore(ctx context.Context, region, endpoint string, tables DynamoTables) (*DynamoStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, tables), nil
}

func (d *DynamoStore) put(ctx context.Context, table string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item in %s: %w", table, err)
	}
	return nil
}

// get decodes the item at key into v and reports whether it existed.
func (d *DynamoStore) get(ctx context.Context, table string, key map[string]types.AttributeValue, v any) (bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get item from %s: %w", table, err)
	}
	if out.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, v); err != nil {
		return false, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return true, nil
}

// PutSubmission implements SubmissionStore.
func (d *DynamoStore) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	if err := d.put(ctx, d.tables.Submissions, toSubmissionRecord(s)); err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// ListByEvent implements SubmissionStore.
func (d *DynamoStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Submissions),
		KeyConditionExpression: aws.String("#e = :e"),
		ExpressionAttributeNames: map[string]string{
			"#e": "eventId",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: eventID},
		},
		ConsistentRead: aws.Bool(true),
	})

	out := []model.SurveySubmission{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		var recs []submissionRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("list submissions: %w: %w", ErrCorruptRecord, err)
		}
		for _, rec := range recs {
			if rec.UserID == excludingUserID {
				continue
			}
			sub, err := rec.model()
			if err != nil {
				return nil, fmt.Errorf("list submissions: %w", err)
			}
			out = append(out, sub)
		}
	}

	sortSubmissions(out)
	return out, nil
}

// GetUserInterests implements InterestLookup.
func (d *DynamoStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	var rec profileRecord
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	found, err := d.get(ctx, d.tables.Profiles, key, &rec)
	if err != nil {
		return nil, fmt.Errorf("get interests: %w", err)
	}
	if !found {
		return []string{}, nil
	}
	return interestsOrEmpty(rec.Interests), nil
}

// PutInterests implements ProfileStore.
func (d *DynamoStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	rec := profileRecord{UserID: userID, Interests: interestsOrEmpty(interests)}
	if err := d.put(ctx, d.tables.Profiles, rec); err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	return nil
}

// PutGrid implements GridStore.
func (d *DynamoStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	if err := d.put(ctx, d.tables.Grids, toGridRecord(g)); err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	return nil
}

// GetGrid implements GridStore.
func (d *DynamoStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	var rec gridRecord
	key := map[string]types.AttributeValue{
		"userId":  &types.AttributeValueMemberS{Value: userID},
		"eventId": &types.AttributeValueMemberS{Value: eventID},
	}
	found, err := d.get(ctx, d.tables.Grids, key, &rec)
	if err != nil {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", err)
	}
	if !found {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", ErrNotFound)
	}
	return rec.model(), nil
}

// Close implements Backend. The AWS client holds no connections to release.
func (d *DynamoStore) Close() error { return nil }
