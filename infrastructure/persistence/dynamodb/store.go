// Package dynamodb provides a DynamoDB-backed ThoughtRepository using a
// single table with one item per thought.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"thoughtnet/domain"
)

const (
	pkPrefix   = "THOUGHT#"
	entityType = "Thought"
)

// thoughtItem is the DynamoDB item shape for a thought.
type thoughtItem struct {
	PK          string   `dynamodbav:"PK"`
	EntityType  string   `dynamodbav:"EntityType"`
	ID          string   `dynamodbav:"ID"`
	Content     string   `dynamodbav:"Content"`
	Author      string   `dynamodbav:"Author"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	Likes       int      `dynamodbav:"Likes"`
	Tags        []string `dynamodbav:"Tags"`
	Connections []string `dynamodbav:"Connections"`
}

func toItem(t *domain.Thought) thoughtItem {
	return thoughtItem{
		PK:          pkPrefix + t.ID,
		EntityType:  entityType,
		ID:          t.ID,
		Content:     t.Content,
		Author:      t.Author,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
		Likes:       t.Likes,
		Tags:        t.Tags,
		Connections: t.Connections,
	}
}

func fromItem(item thoughtItem) (*domain.Thought, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing CreatedAt for %s: %w", item.ID, err)
	}
	t := &domain.Thought{
		ID:          item.ID,
		Content:     item.Content,
		Author:      item.Author,
		CreatedAt:   createdAt,
		Likes:       item.Likes,
		Tags:        item.Tags,
		Connections: item.Connections,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Connections == nil {
		t.Connections = []string{}
	}
	return t, nil
}

// Store implements ports.ThoughtRepository against DynamoDB.
type Store struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewStore creates a Store using the default AWS credential chain.
func NewStore(ctx context.Context, tableName, region string, logger *zap.Logger) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Store{
		client:    awsdynamodb.NewFromConfig(awsCfg),
		tableName: tableName,
		logger:    logger,
	}, nil
}

// NewStoreWithClient creates a Store around an existing client, for local
// DynamoDB endpoints and tests.
func NewStoreWithClient(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

func (s *Store) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefix + id},
	}
}

// GetThought returns the thought with the given id, or nil.
func (s *Store) GetThought(ctx context.Context, id string) (*domain.Thought, error) {
	out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("getting thought %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item thoughtItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling thought %s: %w", id, err)
	}
	return fromItem(item)
}

// GetAllThoughts scans the table and returns every thought, newest first.
func (s *Store) GetAllThoughts(ctx context.Context) ([]*domain.Thought, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityType))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("building scan expression: %w", err)
	}

	all := []*domain.Thought{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning thoughts: %w", err)
		}
		var items []thoughtItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshaling scan page: %w", err)
		}
		for _, item := range items {
			t, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			all = append(all, t)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// CreateThought stores a new thought and returns it.
func (s *Store) CreateThought(ctx context.Context, content, author string) (*domain.Thought, error) {
	t := domain.NewThought(content, author)
	item, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return nil, fmt.Errorf("marshaling thought: %w", err)
	}
	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("putting thought: %w", err)
	}
	return t, nil
}

// SearchThoughts matches the query case-insensitively against content and
// tags. Matching happens client-side over a scan; fine at this data size.
func (s *Store) SearchThoughts(ctx context.Context, query string) ([]*domain.Thought, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(query)
	out := []*domain.Thought{}
	for _, t := range all {
		if matchesQuery(t, term) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesQuery(t *domain.Thought, term string) bool {
	if strings.Contains(strings.ToLower(t.Content), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// LikeThought atomically increments the like counter, or returns nil for
// an unknown id.
func (s *Store) LikeThought(ctx context.Context, id string) (*domain.Thought, error) {
	update := expression.Add(expression.Name("Likes"), expression.Value(1))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("building like expression: %w", err)
	}
	return s.update(ctx, id, expr)
}

// UpdateThoughtConnections replaces the connections list wholesale.
func (s *Store) UpdateThoughtConnections(ctx context.Context, id string, connections []string) (*domain.Thought, error) {
	return s.setList(ctx, id, "Connections", connections)
}

// UpdateThoughtTags replaces the tags list wholesale.
func (s *Store) UpdateThoughtTags(ctx context.Context, id string, tags []string) (*domain.Thought, error) {
	return s.setList(ctx, id, "Tags", tags)
}

func (s *Store) setList(ctx context.Context, id, attr string, values []string) (*domain.Thought, error) {
	if values == nil {
		values = []string{}
	}
	update := expression.Set(expression.Name(attr), expression.Value(values))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("building %s expression: %w", attr, err)
	}
	return s.update(ctx, id, expr)
}

func (s *Store) update(ctx context.Context, id string, expr expression.Expression) (*domain.Thought, error) {
	out, err := s.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, fmt.Errorf("updating thought %s: %w", id, err)
	}
	var item thoughtItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling updated thought %s: %w", id, err)
	}
	return fromItem(item)
}

// GetConnectedThoughts resolves the thought's connection ids, dropping
// ids that no longer resolve.
func (s *Store) GetConnectedThoughts(ctx context.Context, id string) ([]*domain.Thought, error) {
	t, err := s.GetThought(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []*domain.Thought{}
	if t == nil {
		return out, nil
	}
	for _, cid := range t.Connections {
		c, err := s.GetThought(ctx, cid)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetNetworkStats computes totals over the whole table.
func (s *Store) GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.NetworkStats{TotalThoughts: len(all)}
	for _, t := range all {
		stats.ActiveConnections += len(t.Connections)
		if t.Author != domain.AnonymousAuthor {
			stats.UserContributions++
		}
	}
	return stats, nil
}

// GetThoughtOfTheDay picks one thought from the calendar date seed.
func (s *Store) GetThoughtOfTheDay(ctx context.Context) (*domain.Thought, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	idx := domain.DateSeed(time.Now()) % len(all)
	return all[idx], nil
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (s *Store) Close() error {
	return nil
}
