package services

import (
	"context"
	"strings"
	"time"

	"bloxmate_server/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Broadcaster pushes an event to every connected client in a group room.
// Delivery is fire-and-forget; correctness never depends on it.
type Broadcaster interface {
	BroadcastToGroup(groupID, event string, payload interface{})
}

// GroupChatService maintains the chat side of the projection: the message
// log, per-member last-message previews and unread counts, and mute flags.
type GroupChatService struct {
	Groups    GroupStore
	Meta      MetaStore
	Socket    Broadcaster // optional
	Log       *logrus.Logger
	Clock     func() time.Time
	PageLimit int // defaults to 50
}

func (s *GroupChatService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// SendGroupMessage appends a message to the group log and fans the preview
// out into every member's projection in one atomic batch. Members muted by
// the creator cannot send.
func (s *GroupChatService) SendGroupMessage(ctx context.Context, groupID string, sender models.UserIdentity, text string) (*models.GroupMessage, error) {
	if groupID == "" || sender.UserID == "" || strings.TrimSpace(text) == "" {
		return nil, ErrMissingParameters
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !HasPermission(group, sender.UserID, models.ActionSendMessage) {
		return nil, ErrUnauthorized
	}

	msg := &models.GroupMessage{
		MessageID:  uuid.New().String(),
		GroupID:    groupID,
		SenderID:   sender.UserID,
		SenderName: sender.DisplayName,
		Text:       text,
		CreatedAt:  s.now().UnixMilli(),
	}

	if err := s.Meta.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.Meta.FanOutMessage(ctx, groupID, group.MemberIDs, sender.UserID, msg); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("groupId", groupID).Warn("message fan-out failed, previews will be stale")
	}

	if s.Socket != nil {
		s.Socket.BroadcastToGroup(groupID, "newMessage", msg)
	}
	return msg, nil
}

// GetGroupMessages returns up to limit messages for a member, oldest first
// so the newest message lands at the bottom of the conversation view.
func (s *GroupChatService) GetGroupMessages(ctx context.Context, groupID, userID string, limit int) ([]models.GroupMessage, error) {
	if groupID == "" || userID == "" {
		return nil, ErrMissingParameters
	}
	if limit <= 0 {
		limit = s.PageLimit
		if limit <= 0 {
			limit = 50
		}
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !HasPermission(group, userID, models.ActionViewGroup) {
		return nil, ErrUnauthorized
	}

	messages, err := s.Meta.Messages(ctx, groupID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkGroupRead zeroes the caller's unread count for the group.
func (s *GroupChatService) MarkGroupRead(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return ErrMissingParameters
	}
	return s.Meta.ResetUnread(ctx, userID, groupID)
}

// SetGroupMuted flips the caller's own notification mute for the group.
func (s *GroupChatService) SetGroupMuted(ctx context.Context, groupID, userID string, muted bool) error {
	if groupID == "" || userID == "" {
		return ErrMissingParameters
	}
	return s.Meta.SetMuted(ctx, userID, groupID, muted)
}

// SetMemberMuted lets the creator mute or unmute another member's sending.
func (s *GroupChatService) SetMemberMuted(ctx context.Context, groupID, targetID, callerID string, muted bool) error {
	if groupID == "" || targetID == "" || callerID == "" {
		return ErrMissingParameters
	}

	return s.Groups.MutateGroup(ctx, groupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if !HasPermission(g, callerID, models.ActionMuteMember) {
			return TxNone, ErrUnauthorized
		}
		if !g.HasMember(targetID) {
			return TxNone, ErrNotAMember
		}

		if muted {
			if g.IsMutedMember(targetID) {
				return TxNone, nil
			}
			g.MutedIDs = append(g.MutedIDs, targetID)
		} else {
			if !g.IsMutedMember(targetID) {
				return TxNone, nil
			}
			ids := g.MutedIDs[:0]
			for _, id := range g.MutedIDs {
				if id != targetID {
					ids = append(ids, id)
				}
			}
			g.MutedIDs = ids
		}
		return TxWrite, nil
	})
}
