// Package mapping converts between the Lambda event shapes and the domain models.
package mapping

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/live-economy/pkg/models"
)

// ToAttributeValueMap converts a stream image from a Lambda event into SDK attribute values.
func ToAttributeValueMap(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		av, err := ToAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// ToAttributeValue converts one Lambda event attribute into an SDK attribute value.
func ToAttributeValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, len(list))
		for i, item := range list {
			av, err := ToAttributeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := ToAttributeValueMap(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %v", v.DataType())
}

// AccountFromStreamRecord decodes the account carried by a stream record.
// For REMOVE events only the key is available, and deleted is true.
func AccountFromStreamRecord(record events.DynamoDBEventRecord) (account models.Account, deleted bool, err error) {
	image := record.Change.NewImage
	if events.DynamoDBOperationType(record.EventName) == events.DynamoDBOperationTypeRemove {
		image = record.Change.Keys
		deleted = true
	}
	if len(image) == 0 {
		return models.Account{}, deleted, fmt.Errorf("stream record %s carries no image", record.EventID)
	}

	item, err := ToAttributeValueMap(image)
	if err != nil {
		return models.Account{}, deleted, fmt.Errorf("failed to convert stream image: %w", err)
	}
	if err := attributevalue.UnmarshalMap(item, &account); err != nil {
		return models.Account{}, deleted, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return account, deleted, nil
}
