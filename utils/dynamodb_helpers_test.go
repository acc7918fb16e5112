package utils

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	item := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: "g1"},
		"count":   &types.AttributeValueMemberN{Value: "3"},
	}

	assert.Equal(t, "g1", ExtractString(item, "groupId"))
	assert.Equal(t, "", ExtractString(item, "count"))
	assert.Equal(t, "", ExtractString(item, "missing"))
}

func TestExtractStringList(t *testing.T) {
	item := map[string]types.AttributeValue{
		"memberIds": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "alice"},
			&types.AttributeValueMemberS{Value: "bob"},
			&types.AttributeValueMemberN{Value: "42"},
		}},
		"mutedIds": &types.AttributeValueMemberSS{Value: []string{"carol"}},
	}

	assert.Equal(t, []string{"alice", "bob"}, ExtractStringList(item, "memberIds"))
	assert.Equal(t, []string{"carol"}, ExtractStringList(item, "mutedIds"))
	assert.Nil(t, ExtractStringList(item, "missing"))
}
