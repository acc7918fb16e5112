package services

import (
	"context"
	"fmt"

	"bloxmate_server/models"
	"bloxmate_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// GroupTxFunc mutates a group inside an optimistic transaction. The group is
// nil when the document no longer exists; the callback picks the outcome.
type GroupTxFunc func(g *models.Group) (TxOutcome, error)

// GroupStore is the document-store surface for the Group aggregate.
type GroupStore interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	CreateGroup(ctx context.Context, g *models.Group) error
	MutateGroup(ctx context.Context, groupID string, fn GroupTxFunc) error
	DeleteGroup(ctx context.Context, groupID string) error
	FindActiveGroupByCreator(ctx context.Context, creatorID string) (*models.Group, error)
	GroupsForMember(ctx context.Context, userID string) ([]models.Group, error)
}

// DynamoGroupStore is the production GroupStore.
type DynamoGroupStore struct {
	Dynamo *DynamoService
}

func groupKey(groupID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
}

func (s *DynamoGroupStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	item, err := s.Dynamo.GetItem(ctx, models.GroupsTable, groupKey(groupID))
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, ErrGroupNotFound
	}

	var group models.Group
	if err := attributevalue.UnmarshalMap(item, &group); err != nil {
		return nil, fmt.Errorf("failed to parse group '%s': %w", groupID, err)
	}
	return &group, nil
}

// CreateGroup inserts a new group, refusing to overwrite an existing id.
func (s *DynamoGroupStore) CreateGroup(ctx context.Context, g *models.Group) error {
	return s.Dynamo.PutItemIfAbsent(ctx, models.GroupsTable, "groupId", g)
}

// MutateGroup runs fn against the current group document under optimistic
// concurrency. fn sees nil for a missing group and mutates in place.
func (s *DynamoGroupStore) MutateGroup(ctx context.Context, groupID string, fn GroupTxFunc) error {
	return s.Dynamo.OptimisticUpdate(ctx, models.GroupsTable, "groupId", groupKey(groupID),
		func(current map[string]types.AttributeValue) (map[string]types.AttributeValue, TxOutcome, error) {
			var group *models.Group
			if current != nil {
				group = &models.Group{}
				if err := attributevalue.UnmarshalMap(current, group); err != nil {
					return nil, TxNone, fmt.Errorf("failed to parse group '%s': %w", groupID, err)
				}
			}

			outcome, err := fn(group)
			if err != nil || outcome != TxWrite {
				return nil, outcome, err
			}

			next, err := attributevalue.MarshalMap(group)
			if err != nil {
				return nil, TxNone, fmt.Errorf("failed to marshal group '%s': %w", groupID, err)
			}
			return next, TxWrite, nil
		})
}

func (s *DynamoGroupStore) DeleteGroup(ctx context.Context, groupID string) error {
	return s.Dynamo.DeleteItem(ctx, models.GroupsTable, groupKey(groupID))
}

// FindActiveGroupByCreator returns the creator's active group, or nil. This
// backs the one-active-group-per-creator check; it is a query, so two
// concurrent creates can both pass it (documented race).
func (s *DynamoGroupStore) FindActiveGroupByCreator(ctx context.Context, creatorID string) (*models.Group, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.GroupsTable, models.GroupCreatorIndex,
		"createdBy = :creator",
		map[string]types.AttributeValue{
			":creator": &types.AttributeValueMemberS{Value: creatorID},
		},
		nil, "", 0)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := attributevalue.UnmarshalListOfMaps(items, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse groups for creator '%s': %w", creatorID, err)
	}
	for i := range groups {
		if groups[i].IsActive {
			return &groups[i], nil
		}
	}
	return nil, nil
}

// GroupsForMember scans for every group containing the user. Powers the
// projection self-heal on listing, not any hot path.
func (s *DynamoGroupStore) GroupsForMember(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.Dynamo.ScanWithFilter(ctx, models.GroupsTable, func(item map[string]types.AttributeValue) bool {
		for _, id := range utils.ExtractStringList(item, "memberIds") {
			if id == userID {
				return true
			}
		}
		return false
	}, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}
