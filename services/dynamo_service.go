package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// DynamoService wraps the DynamoDB client with the generic document
// operations the typed stores are built on.
type DynamoService struct {
	Client *dynamodb.Client
	Log    *logrus.Logger
}

// maxTxAttempts bounds the optimistic read-modify-write retry loop.
const maxTxAttempts = 3

// TxOutcome tells OptimisticUpdate what to do with the document after the
// transaction callback ran.
type TxOutcome int

const (
	TxNone   TxOutcome = iota // leave the document untouched
	TxWrite                   // write the returned document back
	TxDelete                  // delete the document
)

// TxFunc receives the current item (nil if the document does not exist) and
// returns the next item together with the outcome. Returning an error aborts
// the transaction without retrying.
type TxFunc func(current map[string]types.AttributeValue) (map[string]types.AttributeValue, TxOutcome, error)

// InitializeDynamoDBClient initializes the DynamoDB client for the given region.
func InitializeDynamoDBClient(region string) *dynamodb.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		logrus.Fatalf("failed to load AWS config: %v", err)
	}
	return dynamodb.NewFromConfig(cfg)
}

// GetItem retrieves an item. A missing item is (nil, nil); the typed stores
// map that onto their own not-found errors.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	return output.Item, nil
}

// PutItem marshals and unconditionally writes an item.
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaled,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// PutItemIfAbsent writes an item only when no document with the same key
// exists yet. keyAttr is the partition key attribute name.
func (ds *DynamoService) PutItemIfAbsent(ctx context.Context, tableName, keyAttr string, item interface{}) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	condition := fmt.Sprintf("attribute_not_exists(%s)", keyAttr)
	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &tableName,
		Item:                marshaled,
		ConditionExpression: &condition,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("item already exists in table '%s': %w", tableName, err)
		}
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// UpdateItem applies an update expression to a single item.
func (ds *DynamoService) UpdateItem(
	ctx context.Context,
	tableName string,
	updateExpression string,
	key map[string]types.AttributeValue,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
) (map[string]types.AttributeValue, error) {
	if len(key) == 0 {
		return nil, errors.New("update failed: key cannot be empty")
	}
	if updateExpression == "" {
		return nil, errors.New("update failed: updateExpression cannot be empty")
	}

	output, err := ds.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &tableName,
		Key:                       key,
		UpdateExpression:          &updateExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item in table '%s': %w", tableName, err)
	}
	if output.Attributes == nil {
		return map[string]types.AttributeValue{}, nil
	}
	return output.Attributes, nil
}

// DeleteItem removes an item from DynamoDB.
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	_, err := ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &tableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	return nil
}

// QueryIndex queries a table or one of its GSIs. indexName and
// filterExpression may be empty.
func (ds *DynamoService) QueryIndex(
	ctx context.Context,
	tableName string,
	indexName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
	filterExpression string,
	limit int32,
) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:                 &tableName,
		KeyConditionExpression:    &keyConditionExpression,
		ExpressionAttributeValues: expressionAttributeValues,
	}
	if indexName != "" {
		input.IndexName = &indexName
	}
	if len(expressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = expressionAttributeNames
	}
	if filterExpression != "" {
		input.FilterExpression = &filterExpression
	}
	if limit > 0 {
		input.Limit = &limit
	}

	output, err := ds.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query table '%s': %w", tableName, err)
	}
	return output.Items, nil
}

// ScanWithFilter performs a full scan and applies the callback to each raw
// item before unmarshalling the survivors into result (a pointer to a slice).
func (ds *DynamoService) ScanWithFilter(
	ctx context.Context,
	tableName string,
	filterFunc func(map[string]types.AttributeValue) bool,
	result interface{},
) error {
	output, err := ds.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("failed to scan table '%s': %w", tableName, err)
	}

	var filtered []map[string]types.AttributeValue
	for _, item := range output.Items {
		if filterFunc == nil || filterFunc(item) {
			filtered = append(filtered, item)
		}
	}

	if err := attributevalue.UnmarshalListOfMaps(filtered, result); err != nil {
		return fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return nil
}

// OptimisticUpdate runs a read-modify-write transaction against a single
// document. The current item is read, fn decides the outcome, and the write
// back is conditioned on the document's version attribute so a concurrent
// writer forces a re-read and another attempt. keyAttr is the partition key
// attribute name, used to condition creation on absence.
func (ds *DynamoService) OptimisticUpdate(ctx context.Context, tableName, keyAttr string, key map[string]types.AttributeValue, fn TxFunc) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		current, err := ds.GetItem(ctx, tableName, key)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			current = nil
		}

		version := itemVersion(current)
		next, outcome, err := fn(current)
		if err != nil {
			return err
		}

		switch outcome {
		case TxNone:
			return nil

		case TxWrite:
			next["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version+1, 10)}
			input := &dynamodb.PutItemInput{
				TableName: &tableName,
				Item:      next,
			}
			if current == nil {
				input.ConditionExpression = aws.String(fmt.Sprintf("attribute_not_exists(%s)", keyAttr))
			} else {
				input.ConditionExpression = aws.String("version = :v")
				input.ExpressionAttributeValues = map[string]types.AttributeValue{
					":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
				}
			}
			_, err = ds.Client.PutItem(ctx, input)

		case TxDelete:
			if current == nil {
				return nil
			}
			_, err = ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:           &tableName,
				Key:                 key,
				ConditionExpression: aws.String("version = :v"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
				},
			})

		default:
			return fmt.Errorf("unknown transaction outcome %d", outcome)
		}

		if err == nil {
			return nil
		}
		if !isConditionalCheckFailed(err) {
			return fmt.Errorf("transaction write on table '%s' failed: %w", tableName, err)
		}
		if ds.Log != nil {
			ds.Log.WithFields(logrus.Fields{"table": tableName, "attempt": attempt + 1}).
				Debug("optimistic update lost the write race, retrying")
		}
	}
	return fmt.Errorf("optimistic update on table '%s' gave up after %d attempts: %w", tableName, maxTxAttempts, ErrTxConflict)
}

func itemVersion(item map[string]types.AttributeValue) int64 {
	if item == nil {
		return 0
	}
	attr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
