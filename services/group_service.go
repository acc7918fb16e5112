package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"bloxmate_server/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GroupService owns the group lifecycle: creation with the initial invite
// fan-out, deletion with cascading cross-store cleanup, and the read paths.
type GroupService struct {
	Groups   GroupStore
	Invites  InviteStore
	Requests JoinRequestStore
	Meta     MetaStore
	Cleanup  *MetaCleanup
	Log      *logrus.Logger
	Clock    func() time.Time
}

func (s *GroupService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// CreateGroupParams carries everything createGroup needs. InviteeProfiles is
// a caller-supplied identity map; ids missing from it fall back to per-user
// real-time-store reads.
type CreateGroupParams struct {
	Creator         models.UserIdentity
	Name            string
	Description     string
	Avatar          string
	InviteeIDs      []string
	InviteeProfiles map[string]models.UserIdentity
}

// CreateGroup writes the group with the creator as its only member and sends
// a pending invitation to every invitee. Invitees become members only by
// accepting. Invitations go out sequentially, each behind its own duplicate
// check.
func (s *GroupService) CreateGroup(ctx context.Context, p CreateGroupParams) (*models.Group, error) {
	if p.Creator.UserID == "" || strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "" {
		return nil, ErrMissingParameters
	}

	invitees := dedupeInvitees(p.InviteeIDs, p.Creator.UserID)
	total := 1 + len(invitees)
	if total < models.MinGroupSize {
		return nil, ErrMissingParameters
	}
	if total > models.MaxGroupMembers {
		return nil, ErrGroupFull
	}

	// Query-then-check: two parallel creates by the same user can both pass.
	existing, err := s.Groups.FindActiveGroupByCreator(ctx, p.Creator.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrActiveGroupExists
	}

	now := s.now()
	group := &models.Group{
		GroupID:     uuid.New().String(),
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Avatar:      p.Avatar,
		CreatedBy:   p.Creator.UserID,
		MemberIDs:   []string{p.Creator.UserID},
		Members: map[string]models.GroupMember{
			p.Creator.UserID: {
				DisplayName: p.Creator.DisplayName,
				Avatar:      p.Creator.Avatar,
				JoinedAt:    now,
			},
		},
		MemberCount: 1,
		MaxMembers:  models.MaxGroupMembers,
		IsActive:    true,
		CreatedAt:   now,
	}

	if err := s.Groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	creatorMeta := &models.GroupMeta{
		GroupID:     group.GroupID,
		GroupName:   group.Name,
		GroupAvatar: group.Avatar,
		JoinedAt:    now.UnixMilli(),
		CreatedBy:   group.CreatedBy,
	}
	if err := s.Meta.WriteMeta(ctx, p.Creator.UserID, creatorMeta); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("groupId", group.GroupID).
			Warn("creator meta write failed, will self-heal on next listing")
	}

	for _, inviteeID := range invitees {
		if err := s.sendCreationInvite(ctx, group, p, inviteeID, now); err != nil && s.Log != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{"groupId": group.GroupID, "userId": inviteeID}).
				Warn("failed to send creation invite")
		}
	}

	return group, nil
}

func (s *GroupService) sendCreationInvite(ctx context.Context, group *models.Group, p CreateGroupParams, inviteeID string, now time.Time) error {
	existing, err := s.Invites.FindPendingInvite(ctx, group.GroupID, inviteeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	identity, ok := p.InviteeProfiles[inviteeID]
	if !ok {
		if profile, err := s.Meta.GetUserProfile(ctx, inviteeID); err == nil && profile != nil {
			identity = *profile
		} else {
			identity = models.UserIdentity{UserID: inviteeID}
		}
	}

	return s.Invites.PutInvite(ctx, &models.Invitation{
		InviteID:      uuid.New().String(),
		GroupID:       group.GroupID,
		GroupName:     group.Name,
		GroupAvatar:   group.Avatar,
		InvitedBy:     p.Creator.UserID,
		InviterName:   p.Creator.DisplayName,
		InvitedUserID: inviteeID,
		InviteeName:   identity.DisplayName,
		InviteeAvatar: identity.Avatar,
		Status:        models.InviteStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, models.InviteTTLDays),
	})
}

// DeleteGroup tears a group down across both stores. Nothing here is atomic:
// every step tolerates failure and the operation degrades to "mostly cleaned
// up" rather than failing, because a missed projection resurrects the group
// in someone's list on their next load.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, callerID string) error {
	if groupID == "" {
		return ErrMissingParameters
	}
	fields := logrus.Fields{"groupId": groupID}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil && !errors.Is(err, ErrGroupNotFound) {
		// Unreadable group document: keep going, the fallback chain below
		// still has to clean up projections.
		if s.Log != nil {
			s.Log.WithError(err).WithFields(fields).Warn("group document unreadable during delete")
		}
		group = nil
	}
	if group != nil && callerID != "" && !HasPermission(group, callerID, models.ActionDeleteGroup) {
		return ErrUnauthorized
	}

	memberIDs := s.discoverMembers(ctx, group, groupID, fields)

	if err := s.Groups.DeleteGroup(ctx, groupID); err != nil && s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("failed to delete group document")
	}
	if err := s.Meta.DeleteGroupMirror(ctx, groupID); err != nil && s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("failed to delete group mirror")
	}
	if err := s.Meta.DeleteMessageLog(ctx, groupID); err != nil && s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("failed to delete message log")
	}

	for _, memberID := range memberIDs {
		s.Cleanup.Run(ctx, memberID, groupID)
	}

	if invites, err := s.Invites.InvitesForGroup(ctx, groupID); err == nil {
		for _, invite := range invites {
			if err := s.Invites.DeleteInvite(ctx, invite.InviteID); err != nil && s.Log != nil {
				s.Log.WithError(err).WithFields(fields).Warn("failed to delete invitation")
			}
		}
	} else if s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("failed to list invitations for delete")
	}

	if requests, err := s.Requests.RequestsForGroup(ctx, groupID); err == nil {
		for _, request := range requests {
			if err := s.Requests.DeleteRequest(ctx, request.RequestID); err != nil && s.Log != nil {
				s.Log.WithError(err).WithFields(fields).Warn("failed to delete join request")
			}
		}
	} else if s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("failed to list join requests for delete")
	}

	return nil
}

// discoverMembers builds the cleanup set from the best source available:
// the group document, then the real-time mirror, then historical invite
// records. Every historical member matters; a missed one becomes a zombie
// group in that user's list.
func (s *GroupService) discoverMembers(ctx context.Context, group *models.Group, groupID string, fields logrus.Fields) []string {
	if group != nil && len(group.MemberIDs) > 0 {
		return group.MemberIDs
	}

	mirror, err := s.Meta.ListGroupMembers(ctx, groupID)
	if err != nil && s.Log != nil {
		s.Log.WithError(err).WithFields(fields).Warn("group mirror unreadable, falling back to invite records")
	}
	if len(mirror) > 0 {
		return mirror
	}

	invites, err := s.Invites.InvitesForGroup(ctx, groupID)
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).WithFields(fields).Warn("invite records unreadable, no members to clean up")
		}
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, invite := range invites {
		if !seen[invite.InvitedUserID] {
			seen[invite.InvitedUserID] = true
			ids = append(ids, invite.InvitedUserID)
		}
		if !seen[invite.InvitedBy] {
			seen[invite.InvitedBy] = true
			ids = append(ids, invite.InvitedBy)
		}
	}
	return ids
}

// GetGroup returns the group to one of its members.
func (s *GroupService) GetGroup(ctx context.Context, groupID, callerID string) (*models.Group, error) {
	if groupID == "" || callerID == "" {
		return nil, ErrMissingParameters
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !HasPermission(group, callerID, models.ActionViewGroup) {
		return nil, ErrUnauthorized
	}
	return group, nil
}

// UpdateGroupInfo lets the creator rename the group; the new name and avatar
// are pushed into every member's projection best-effort.
func (s *GroupService) UpdateGroupInfo(ctx context.Context, groupID, callerID, name, description, avatar string) error {
	if groupID == "" || callerID == "" {
		return ErrMissingParameters
	}
	if strings.TrimSpace(name) == "" && strings.TrimSpace(description) == "" && avatar == "" {
		return ErrMissingParameters
	}

	var memberIDs []string
	var newName, newAvatar string
	err := s.Groups.MutateGroup(ctx, groupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if !HasPermission(g, callerID, models.ActionEditGroup) {
			return TxNone, ErrUnauthorized
		}

		if strings.TrimSpace(name) != "" {
			g.Name = strings.TrimSpace(name)
		}
		if strings.TrimSpace(description) != "" {
			g.Description = strings.TrimSpace(description)
		}
		if avatar != "" {
			g.Avatar = avatar
		}

		memberIDs = append([]string(nil), g.MemberIDs...)
		newName, newAvatar = g.Name, g.Avatar
		return TxWrite, nil
	})
	if err != nil {
		return err
	}

	if err := s.Meta.UpdateGroupInfo(ctx, groupID, memberIDs, newName, newAvatar); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("groupId", groupID).Warn("failed to propagate group info to projections")
	}
	return nil
}

// ListUserGroups reads the user's projections and self-heals: any group the
// document store says the user belongs to that has no projection gets one
// rewritten on the spot. This closes the gap left by best-effort meta writes.
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]models.GroupMeta, error) {
	if userID == "" {
		return nil, ErrMissingParameters
	}

	metas, err := s.Meta.MetasForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(metas))
	for _, meta := range metas {
		known[meta.GroupID] = true
	}

	groups, err := s.Groups.GroupsForMember(ctx, userID)
	if err != nil {
		// Authoritative listing unavailable; serve the projection as-is.
		if s.Log != nil {
			s.Log.WithError(err).WithField("userId", userID).Warn("membership scan failed, skipping projection self-heal")
		}
		groups = nil
	}
	for i := range groups {
		g := &groups[i]
		if known[g.GroupID] {
			continue
		}
		meta := models.GroupMeta{
			GroupID:     g.GroupID,
			GroupName:   g.Name,
			GroupAvatar: g.Avatar,
			JoinedAt:    g.Members[userID].JoinedAt.UnixMilli(),
			CreatedBy:   g.CreatedBy,
		}
		if err := s.Meta.WriteMeta(ctx, userID, &meta); err != nil && s.Log != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{"userId": userID, "groupId": g.GroupID}).
				Warn("projection self-heal write failed")
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].LastMessageTimestamp > metas[j].LastMessageTimestamp
	})
	return metas, nil
}

func dedupeInvitees(ids []string, creatorID string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || id == creatorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
