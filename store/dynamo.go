package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/tree"
)

// Item attribute names of the node table.
const (
	AttrPK        = "pk"
	AttrPath      = "path"
	AttrDoc       = "doc"
	AttrUpdatedAt = "updated_at"
)

// DynamoAPI is the subset of *dynamodb.Client the backend uses.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Dynamo stores the tree in a DynamoDB table, one item per object node that
// carries fields. Subtrees are read back with a prefix query on the sort key.
type Dynamo struct {
	client DynamoAPI
	config DynamoConfig
	now    func() time.Time
}

// NewDynamo creates a DynamoDB backed store.
func NewDynamo(client DynamoAPI, config DynamoConfig) *Dynamo {
	config.validate()
	return &Dynamo{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (d *Dynamo) Config() DynamoConfig {
	return d.config
}

// ReadSubtree implements RecordStore.
func (d *Dynamo) ReadSubtree(ctx context.Context, path string) (Snapshot, error) {
	p, err := ValidatePath(path)
	if err != nil {
		return Snapshot{}, err
	}
	if d.client == nil {
		return Snapshot{}, ErrUnavailable
	}

	var docs []tree.Doc
	err = d.query(ctx, p, false, func(item map[string]types.AttributeValue) error {
		doc, err := unmarshalDoc(item)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: p, Value: tree.Assemble(p, docs)}, nil
}

// WriteAt implements RecordStore. Replacements of up to TransactLimit items
// are applied atomically; larger ones are batched.
func (d *Dynamo) WriteAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	if d.client == nil {
		return ErrUnavailable
	}

	existing, err := d.paths(ctx, p)
	if err != nil {
		return err
	}

	docs := tree.Flatten(p, value)
	keep := make(map[string]bool, len(docs))
	var writes []types.WriteRequest
	for _, doc := range docs {
		item, err := d.marshalDoc(doc)
		if err != nil {
			return err
		}
		keep[doc.Path] = true
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, old := range existing {
		if keep[old] {
			continue
		}
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: d.key(old)}})
	}

	if len(writes) == 0 {
		return nil
	}
	if len(writes) <= d.config.TransactLimit {
		return d.transact(ctx, writes)
	}
	return d.batchWrite(ctx, writes)
}

// CreateAt implements Creator. Every node of value is put with an
// attribute_not_exists condition in one transaction.
func (d *Dynamo) CreateAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	if d.client == nil {
		return ErrUnavailable
	}

	docs := tree.Flatten(p, value)
	if len(docs) == 0 {
		return ErrEmptyValue
	}
	if len(docs) > d.config.TransactLimit {
		return fmt.Errorf("create %q: %d nodes exceed the transaction limit of %d", p, len(docs), d.config.TransactLimit)
	}

	// Descendants written earlier are invisible to the put conditions.
	existing, err := d.paths(ctx, p)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrAlreadyExists
	}

	items := make([]types.TransactWriteItem, 0, len(docs))
	for _, doc := range docs {
		item, err := d.marshalDoc(doc)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(d.config.Table),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#path)"),
				ExpressionAttributeNames: map[string]string{"#path": AttrPath},
			},
		})
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapCreateTransactionError(err)
}

// query pages through every item at or below p and calls fn for each.
func (d *Dynamo) query(ctx context.Context, p string, keysOnly bool, fn func(map[string]types.AttributeValue) error) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.config.Table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: d.config.Namespace},
		},
		ConsistentRead: aws.Bool(true),
	}
	names := map[string]string{}
	if p != "" {
		input.KeyConditionExpression = aws.String("pk = :pk AND begins_with(#path, :prefix)")
		input.ExpressionAttributeValues[":prefix"] = &types.AttributeValueMemberS{Value: p}
		names["#path"] = AttrPath
	}
	if keysOnly {
		input.ProjectionExpression = aws.String("#path")
		names["#path"] = AttrPath
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return unavailable("query subtree", err)
		}
		for _, item := range page.Items {
			// begins_with also matches siblings such as "a/bc" for "a/b".
			if !keypath.Within(stringAttr(item, AttrPath), p) {
				continue
			}
			if err := fn(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// paths lists the node paths stored at or below p.
func (d *Dynamo) paths(ctx context.Context, p string) ([]string, error) {
	var out []string
	err := d.query(ctx, p, true, func(item map[string]types.AttributeValue) error {
		out = append(out, stringAttr(item, AttrPath))
		return nil
	})
	return out, err
}

func (d *Dynamo) transact(ctx context.Context, writes []types.WriteRequest) error {
	items := make([]types.TransactWriteItem, 0, len(writes))
	for _, w := range writes {
		switch {
		case w.PutRequest != nil:
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{TableName: aws.String(d.config.Table), Item: w.PutRequest.Item},
			})
		case w.DeleteRequest != nil:
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{TableName: aws.String(d.config.Table), Key: w.DeleteRequest.Key},
			})
		}
	}
	_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return unavailable("write subtree", err)
	}
	return nil
}

// batchWrite sends writes in chunks, retrying unprocessed items with
// exponential back-off.
func (d *Dynamo) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for start := 0; start < len(writes); start += d.config.BatchSize {
		pending := map[string][]types.WriteRequest{
			d.config.Table: writes[start:min(start+d.config.BatchSize, len(writes))],
		}
		delay := d.config.RetryDelay
		for attempt := 1; len(pending[d.config.Table]) > 0; attempt++ {
			if attempt > d.config.MaxAttempts {
				return unavailable("batch write", fmt.Errorf("%d items unprocessed after %d attempts",
					len(pending[d.config.Table]), d.config.MaxAttempts))
			}
			out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return unavailable("batch write", err)
			}
			pending = out.UnprocessedItems
			if len(pending[d.config.Table]) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil
}

func (d *Dynamo) key(path string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK:   &types.AttributeValueMemberS{Value: d.config.Namespace},
		AttrPath: &types.AttributeValueMemberS{Value: path},
	}
}

func (d *Dynamo) marshalDoc(doc tree.Doc) (map[string]types.AttributeValue, error) {
	fields, err := attributevalue.MarshalMap(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal %q: %w", doc.Path, err)
	}
	item := d.key(doc.Path)
	item[AttrDoc] = &types.AttributeValueMemberM{Value: fields}
	item[AttrUpdatedAt] = &types.AttributeValueMemberS{Value: d.now().UTC().Format(time.RFC3339)}
	return item, nil
}

func unmarshalDoc(item map[string]types.AttributeValue) (tree.Doc, error) {
	doc := tree.Doc{Path: stringAttr(item, AttrPath)}
	m, ok := item[AttrDoc].(*types.AttributeValueMemberM)
	if !ok {
		return doc, nil
	}
	if err := attributevalue.UnmarshalMap(m.Value, &doc.Fields); err != nil {
		return doc, fmt.Errorf("unmarshal %q: %w", doc.Path, err)
	}
	return doc, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// mapCreateTransactionError maps a cancelled create to ErrAlreadyExists.
func mapCreateTransactionError(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return ErrAlreadyExists
			}
		}
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAlreadyExists
	}

	return unavailable("create", err)
}
