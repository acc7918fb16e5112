package services

import (
	"context"
	"fmt"

	"bloxmate_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// JoinRequestStore is the document-store surface for join-request records.
type JoinRequestStore interface {
	GetRequest(ctx context.Context, requestID string) (*models.JoinRequest, error)
	PutRequest(ctx context.Context, req *models.JoinRequest) error
	UpdateRequestStatus(ctx context.Context, requestID, status string) error
	FindPendingRequest(ctx context.Context, groupID, requesterID string) (*models.JoinRequest, error)
	PendingRequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error)
	RequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error)
	DeleteRequest(ctx context.Context, requestID string) error
}

// DynamoJoinRequestStore is the production JoinRequestStore.
type DynamoJoinRequestStore struct {
	Dynamo *DynamoService
}

func requestKey(requestID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"requestId": &types.AttributeValueMemberS{Value: requestID},
	}
}

func (s *DynamoJoinRequestStore) GetRequest(ctx context.Context, requestID string) (*models.JoinRequest, error) {
	item, err := s.Dynamo.GetItem(ctx, models.JoinRequestsTable, requestKey(requestID))
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, ErrRequestNotFound
	}

	var request models.JoinRequest
	if err := attributevalue.UnmarshalMap(item, &request); err != nil {
		return nil, fmt.Errorf("failed to parse join request '%s': %w", requestID, err)
	}
	return &request, nil
}

func (s *DynamoJoinRequestStore) PutRequest(ctx context.Context, req *models.JoinRequest) error {
	return s.Dynamo.PutItem(ctx, models.JoinRequestsTable, req)
}

func (s *DynamoJoinRequestStore) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	updateExpression := "SET #s = :status"
	expressionValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expressionNames := map[string]string{
		"#s": "status",
	}
	_, err := s.Dynamo.UpdateItem(ctx, models.JoinRequestsTable, updateExpression, requestKey(requestID), expressionValues, expressionNames)
	return err
}

// FindPendingRequest returns the pending request for (group, requester), or nil.
func (s *DynamoJoinRequestStore) FindPendingRequest(ctx context.Context, groupID, requesterID string) (*models.JoinRequest, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.JoinRequestsTable, models.RequestGroupIndex,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId":   &types.AttributeValueMemberS{Value: groupID},
			":requester": &types.AttributeValueMemberS{Value: requesterID},
			":pending":   &types.AttributeValueMemberS{Value: models.RequestStatusPending},
		},
		map[string]string{"#s": "status"},
		"requesterId = :requester AND #s = :pending",
		0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var request models.JoinRequest
	if err := attributevalue.UnmarshalMap(items[0], &request); err != nil {
		return nil, fmt.Errorf("failed to parse join request: %w", err)
	}
	return &request, nil
}

func (s *DynamoJoinRequestStore) PendingRequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.JoinRequestsTable, models.RequestGroupIndex,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
			":pending": &types.AttributeValueMemberS{Value: models.RequestStatusPending},
		},
		map[string]string{"#s": "status"},
		"#s = :pending",
		0)
	if err != nil {
		return nil, err
	}

	var requests []models.JoinRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse join requests for group '%s': %w", groupID, err)
	}
	return requests, nil
}

func (s *DynamoJoinRequestStore) RequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.JoinRequestsTable, models.RequestGroupIndex,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		},
		nil, "", 0)
	if err != nil {
		return nil, err
	}

	var requests []models.JoinRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse join requests for group '%s': %w", groupID, err)
	}
	return requests, nil
}

func (s *DynamoJoinRequestStore) DeleteRequest(ctx context.Context, requestID string) error {
	return s.Dynamo.DeleteItem(ctx, models.JoinRequestsTable, requestKey(requestID))
}
