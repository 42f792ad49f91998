package store_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory stand-in for the node table. It understands the
// key conditions and conditional puts the Dynamo backend sends.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	pageSize      int
	unprocessOnce bool
	failWith      error

	// beforeTransact runs before a transaction is applied, outside the lock.
	beforeTransact func()

	queries   int
	transacts int
	batches   int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func itemKey(item map[string]types.AttributeValue) string {
	return sAttr(item, "pk") + "\x00" + sAttr(item, "path")
}

func sAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failWith != nil {
		return nil, f.failWith
	}

	pk := sAttr(in.ExpressionAttributeValues, ":pk")
	prefix := sAttr(in.ExpressionAttributeValues, ":prefix")
	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if sAttr(item, "pk") == pk && strings.HasPrefix(sAttr(item, "path"), prefix) {
			matched = append(matched, item)
		}
	}
	slices.SortFunc(matched, func(a, b map[string]types.AttributeValue) int {
		return strings.Compare(sAttr(a, "path"), sAttr(b, "path"))
	})

	start := 0
	if in.ExclusiveStartKey != nil {
		after := sAttr(in.ExclusiveStartKey, "path")
		for start < len(matched) && sAttr(matched[start], "path") <= after {
			start++
		}
	}
	end := min(start+f.pageSize, len(matched))
	out := &dynamodb.QueryOutput{Items: matched[start:end]}
	if end < len(matched) {
		last := matched[end-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": last["pk"], "path": last["path"]}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.failWith != nil {
		return nil, f.failWith
	}

	out := &dynamodb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		if f.unprocessOnce && len(reqs) > 1 {
			f.unprocessOnce = false
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-1:]}
			reqs = reqs[:len(reqs)-1]
		}
		for _, r := range reqs {
			f.apply(r.PutRequest, r.DeleteRequest)
		}
	}
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if f.beforeTransact != nil {
		f.beforeTransact()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.transacts++
	if f.failWith != nil {
		return nil, f.failWith
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i].Code = aws.String("None")
		if ti.Put == nil || ti.Put.ConditionExpression == nil {
			continue
		}
		if strings.HasPrefix(*ti.Put.ConditionExpression, "attribute_not_exists") {
			if _, exists := f.items[itemKey(ti.Put.Item)]; exists {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		var put *types.PutRequest
		var del *types.DeleteRequest
		if ti.Put != nil {
			put = &types.PutRequest{Item: ti.Put.Item}
		}
		if ti.Delete != nil {
			del = &types.DeleteRequest{Key: ti.Delete.Key}
		}
		f.apply(put, del)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) apply(put *types.PutRequest, del *types.DeleteRequest) {
	if put != nil {
		f.items[itemKey(put.Item)] = put.Item
	}
	if del != nil {
		delete(f.items, itemKey(del.Key))
	}
}

func (f *fakeDynamo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

var errFakeOutage = errors.New("connection refused")
