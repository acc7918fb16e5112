package services

import (
	"context"
	"fmt"

	"bloxmate_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// InviteStore is the document-store surface for invitation records.
type InviteStore interface {
	GetInvite(ctx context.Context, inviteID string) (*models.Invitation, error)
	PutInvite(ctx context.Context, inv *models.Invitation) error
	UpdateInviteStatus(ctx context.Context, inviteID, status string) error
	FindPendingInvite(ctx context.Context, groupID, invitedUserID string) (*models.Invitation, error)
	PendingInvitesForUser(ctx context.Context, userID string) ([]models.Invitation, error)
	InvitesForGroup(ctx context.Context, groupID string) ([]models.Invitation, error)
	DeleteInvite(ctx context.Context, inviteID string) error
}

// DynamoInviteStore is the production InviteStore.
type DynamoInviteStore struct {
	Dynamo *DynamoService
}

func inviteKey(inviteID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"inviteId": &types.AttributeValueMemberS{Value: inviteID},
	}
}

func (s *DynamoInviteStore) GetInvite(ctx context.Context, inviteID string) (*models.Invitation, error) {
	item, err := s.Dynamo.GetItem(ctx, models.InvitesTable, inviteKey(inviteID))
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, ErrInviteNotFound
	}

	var invite models.Invitation
	if err := attributevalue.UnmarshalMap(item, &invite); err != nil {
		return nil, fmt.Errorf("failed to parse invitation '%s': %w", inviteID, err)
	}
	return &invite, nil
}

func (s *DynamoInviteStore) PutInvite(ctx context.Context, inv *models.Invitation) error {
	return s.Dynamo.PutItem(ctx, models.InvitesTable, inv)
}

// UpdateInviteStatus writes the terminal status. Last-writer-wins by design;
// only the Group document gets transactional treatment.
func (s *DynamoInviteStore) UpdateInviteStatus(ctx context.Context, inviteID, status string) error {
	updateExpression := "SET #s = :status"
	expressionValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expressionNames := map[string]string{
		"#s": "status",
	}
	_, err := s.Dynamo.UpdateItem(ctx, models.InvitesTable, updateExpression, inviteKey(inviteID), expressionValues, expressionNames)
	return err
}

// FindPendingInvite returns the pending invite for (group, invitee), or nil.
func (s *DynamoInviteStore) FindPendingInvite(ctx context.Context, groupID, invitedUserID string) (*models.Invitation, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.InvitesTable, models.InviteGroupIndex,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
			":invitee": &types.AttributeValueMemberS{Value: invitedUserID},
			":pending": &types.AttributeValueMemberS{Value: models.InviteStatusPending},
		},
		map[string]string{"#s": "status"},
		"invitedUserId = :invitee AND #s = :pending",
		0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var invite models.Invitation
	if err := attributevalue.UnmarshalMap(items[0], &invite); err != nil {
		return nil, fmt.Errorf("failed to parse invitation: %w", err)
	}
	return &invite, nil
}

// PendingInvitesForUser lists a user's incoming pending invites.
func (s *DynamoInviteStore) PendingInvitesForUser(ctx context.Context, userID string) ([]models.Invitation, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.InvitesTable, models.InviteInviteeIndex,
		"invitedUserId = :invitee",
		map[string]types.AttributeValue{
			":invitee": &types.AttributeValueMemberS{Value: userID},
			":pending": &types.AttributeValueMemberS{Value: models.InviteStatusPending},
		},
		map[string]string{"#s": "status"},
		"#s = :pending",
		0)
	if err != nil {
		return nil, err
	}

	var invites []models.Invitation
	if err := attributevalue.UnmarshalListOfMaps(items, &invites); err != nil {
		return nil, fmt.Errorf("failed to parse invitations for user '%s': %w", userID, err)
	}
	return invites, nil
}

// InvitesForGroup lists every invite record referencing the group, in any
// status. Used by group deletion cleanup and fallback member discovery.
func (s *DynamoInviteStore) InvitesForGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	items, err := s.Dynamo.QueryIndex(ctx, models.InvitesTable, models.InviteGroupIndex,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		},
		nil, "", 0)
	if err != nil {
		return nil, err
	}

	var invites []models.Invitation
	if err := attributevalue.UnmarshalListOfMaps(items, &invites); err != nil {
		return nil, fmt.Errorf("failed to parse invitations for group '%s': %w", groupID, err)
	}
	return invites, nil
}

func (s *DynamoInviteStore) DeleteInvite(ctx context.Context, inviteID string) error {
	return s.Dynamo.DeleteItem(ctx, models.InvitesTable, inviteKey(inviteID))
}
