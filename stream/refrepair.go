// Package stream provides DynamoDB Streams handlers for the node table.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/store"
)

// ErrNoStore is returned when a record needs repair but the handler has no store.
var ErrNoStore = errors.New("incargo: stream handler has no store")

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Handler processes DynamoDB stream events of the node table.
type Handler struct {
	store  store.RecordStore
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(rs store.RecordStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  rs,
		logger: logger,
	}
}

// node is the decoded form of a node table item.
type node struct {
	Path string         `dynamodbav:"path"`
	Doc  map[string]any `dynamodbav:"doc"`
}

// HandleRefRepair keeps refValue equal to the path of every record item.
// Records written by other tools, or copied by hand, are rewritten with the
// path they actually live at. The rewrite produces a MODIFY event that is
// already consistent, so the handler does not loop.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleRefRepair(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch record.EventName {
	case EventRemove:
		h.logger.Info("node removed",
			"path", getStringAttr(record.Change.Keys, store.AttrPath),
		)
		return nil
	case EventInsert, EventModify:
	default:
		return nil
	}

	n, err := decodeNode(record.Change.NewImage)
	if err != nil {
		return fmt.Errorf("decode %s image: %w", record.EventName, err)
	}
	if !isRecord(n.Doc) {
		return nil
	}
	ref, _ := n.Doc[cargo.FieldRefValue].(string)
	if ref == n.Path {
		return nil
	}
	if h.store == nil {
		return ErrNoStore
	}

	h.logger.Info("repairing refValue",
		"path", n.Path,
		"refValue", ref,
	)

	// The image may be stale: repair whatever is stored now.
	snap, err := h.store.ReadSubtree(ctx, n.Path)
	if err != nil {
		return fmt.Errorf("read %q: %w", n.Path, err)
	}
	if !snap.Exists() {
		h.logger.Info("record gone before repair", "path", n.Path)
		return nil
	}
	if cur, _ := snap.Value[cargo.FieldRefValue].(string); cur == n.Path {
		return nil
	}
	for _, v := range snap.Value {
		if _, nested := v.(map[string]any); nested {
			h.logger.Warn("record node has children, not repairing", "path", n.Path)
			return nil
		}
	}

	snap.Value[cargo.FieldRefValue] = n.Path
	if err := h.store.WriteAt(ctx, n.Path, snap.Value); err != nil {
		return fmt.Errorf("write %q: %w", n.Path, err)
	}
	return nil
}

// decodeNode converts a stream image into a node.
func decodeNode(image map[string]events.DynamoDBAttributeValue) (node, error) {
	var n node
	if err := attributevalue.UnmarshalMap(ConvertImage(image), &n); err != nil {
		return n, err
	}
	return n, nil
}

func isRecord(doc map[string]any) bool {
	for _, f := range []string{cargo.FieldDate, cargo.FieldContainer} {
		if s, ok := doc[f].(string); ok && s != "" {
			return true
		}
	}
	return false
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values so it
// can be decoded with attributevalue.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertAttr(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertAttr(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if av := convertAttr(item); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	}
	return nil
}
