package services

import (
	"context"
	"time"

	"bloxmate_server/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InviteService handles the invitation workflow: send, accept, decline.
// Accepting mutates the Group document transactionally and then writes the
// invitee's projection best-effort; a failed projection write self-heals on
// the next group listing.
type InviteService struct {
	Groups  GroupStore
	Invites InviteStore
	Meta    MetaStore
	Log     *logrus.Logger
	Clock   func() time.Time // defaults to time.Now
}

func (s *InviteService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// SendInvite creates a pending invitation with a 7-day expiry. Inviter and
// invitee display data is denormalized onto the record so inbox rendering
// needs no further reads.
func (s *InviteService) SendInvite(ctx context.Context, groupID, invitedUserID string, inviter models.UserIdentity) (*models.Invitation, error) {
	if groupID == "" || invitedUserID == "" || inviter.UserID == "" {
		return nil, ErrMissingParameters
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.HasMember(invitedUserID) {
		return nil, ErrAlreadyMember
	}
	if group.IsFull() {
		return nil, ErrGroupFull
	}

	// Query-then-insert: two concurrent senders can both pass this check and
	// produce duplicate pending invites. Accepting one invalidates the other
	// through the in-transaction membership re-check.
	existing, err := s.Invites.FindPendingInvite(ctx, groupID, invitedUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsExpired(s.now()) {
		return nil, ErrDuplicateInvite
	}

	inviterName := inviter.DisplayName
	if member, ok := group.Members[inviter.UserID]; ok && inviterName == "" {
		inviterName = member.DisplayName
	}

	invitee := models.UserIdentity{UserID: invitedUserID}
	if profile, err := s.Meta.GetUserProfile(ctx, invitedUserID); err == nil && profile != nil {
		invitee = *profile
	} else if err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("userId", invitedUserID).Warn("invitee profile lookup failed, sending without display data")
	}

	now := s.now()
	invite := &models.Invitation{
		InviteID:      uuid.New().String(),
		GroupID:       groupID,
		GroupName:     group.Name,
		GroupAvatar:   group.Avatar,
		InvitedBy:     inviter.UserID,
		InviterName:   inviterName,
		InvitedUserID: invitedUserID,
		InviteeName:   invitee.DisplayName,
		InviteeAvatar: invitee.Avatar,
		Status:        models.InviteStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, models.InviteTTLDays),
	}

	if err := s.Invites.PutInvite(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// AcceptInvite validates the invite and adds the user to the group. Group
// capacity and membership are re-checked inside the transaction to close the
// gap between validation and commit.
func (s *InviteService) AcceptInvite(ctx context.Context, inviteID, userID string) error {
	if inviteID == "" || userID == "" {
		return ErrMissingParameters
	}

	invite, err := s.Invites.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite.InvitedUserID != userID {
		return ErrNotYourInvite
	}
	if invite.Status != models.InviteStatusPending {
		return ErrAlreadyProcessed
	}
	if invite.IsExpired(s.now()) {
		return ErrInviteExpired
	}

	joinedAt := s.now()
	var meta *models.GroupMeta
	err = s.Groups.MutateGroup(ctx, invite.GroupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if g.HasMember(userID) {
			return TxNone, ErrAlreadyMember
		}
		if g.IsFull() {
			return TxNone, ErrGroupFull
		}

		g.MemberIDs = append(g.MemberIDs, userID)
		if g.Members == nil {
			g.Members = make(map[string]models.GroupMember)
		}
		g.Members[userID] = models.GroupMember{
			DisplayName: invite.InviteeName,
			Avatar:      invite.InviteeAvatar,
			JoinedAt:    joinedAt,
		}
		g.MemberCount = len(g.MemberIDs)

		meta = &models.GroupMeta{
			GroupID:     g.GroupID,
			GroupName:   g.Name,
			GroupAvatar: g.Avatar,
			JoinedAt:    joinedAt.UnixMilli(),
			CreatedBy:   g.CreatedBy,
		}
		return TxWrite, nil
	})
	if err != nil {
		return err
	}

	// The invite record is a separate document, so this update sits outside
	// the group transaction. If it fails the invite stays pending; a retry
	// collapses into ErrAlreadyMember and membership is unaffected.
	if err := s.Invites.UpdateInviteStatus(ctx, inviteID, models.InviteStatusAccepted); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("inviteId", inviteID).Warn("failed to mark invite accepted")
	}

	if err := s.Meta.WriteMeta(ctx, userID, meta); err != nil && s.Log != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{"userId": userID, "groupId": invite.GroupID}).
			Warn("group meta write failed after join, will self-heal on next listing")
	}
	return nil
}

// DeclineInvite marks the invite declined. No projection effect.
func (s *InviteService) DeclineInvite(ctx context.Context, inviteID, userID string) error {
	if inviteID == "" || userID == "" {
		return ErrMissingParameters
	}

	invite, err := s.Invites.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite.InvitedUserID != userID {
		return ErrNotYourInvite
	}
	if invite.Status != models.InviteStatusPending {
		return ErrAlreadyProcessed
	}

	return s.Invites.UpdateInviteStatus(ctx, inviteID, models.InviteStatusDeclined)
}

// PendingInvitesForUser lists a user's actionable invites, dropping any that
// are past expiry (expired records are filtered at read time, never swept).
func (s *InviteService) PendingInvitesForUser(ctx context.Context, userID string) ([]models.Invitation, error) {
	if userID == "" {
		return nil, ErrMissingParameters
	}

	invites, err := s.Invites.PendingInvitesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actionable := invites[:0]
	for _, invite := range invites {
		if !invite.IsExpired(now) {
			actionable = append(actionable, invite)
		}
	}
	return actionable, nil
}

// InvitesForGroup lists a group's invites for its creator.
func (s *InviteService) InvitesForGroup(ctx context.Context, groupID, callerID string) ([]models.Invitation, error) {
	if groupID == "" || callerID == "" {
		return nil, ErrMissingParameters
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !HasPermission(group, callerID, models.ActionAddMember) {
		return nil, ErrUnauthorized
	}
	return s.Invites.InvitesForGroup(ctx, groupID)
}
