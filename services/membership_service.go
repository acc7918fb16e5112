package services

import (
	"context"
	"fmt"
	"math/rand"

	"bloxmate_server/models"

	"github.com/sirupsen/logrus"
)

// MembershipService mutates group membership: leaving, removal by the
// creator, and creator transfer.
type MembershipService struct {
	Groups  GroupStore
	Meta    MetaStore
	Cleanup *MetaCleanup
	Log     *logrus.Logger
	Rand    func(n int) int // defaults to rand.Intn
}

func (s *MembershipService) intn(n int) int {
	if s.Rand != nil {
		return s.Rand(n)
	}
	return rand.Intn(n)
}

// LeaveGroup removes the user from the group. The last member leaving deletes
// the group document; a leaving creator hands the group to a randomly chosen
// remaining member. The user's projection is cleaned up no matter how the
// transaction went, and a missing group counts as an already-successful leave.
func (s *MembershipService) LeaveGroup(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return ErrMissingParameters
	}

	var newCreator string
	var remaining []string
	defer func() {
		s.Cleanup.Run(ctx, userID, groupID)
		if newCreator != "" {
			if err := s.Meta.UpdateCreator(ctx, groupID, remaining, newCreator); err != nil && s.Log != nil {
				s.Log.WithError(err).WithField("groupId", groupID).Warn("failed to propagate new creator to projections")
			}
		}
	}()

	return s.Groups.MutateGroup(ctx, groupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			// Group already gone; only the projection cleanup is left to do.
			return TxNone, nil
		}
		if !g.HasMember(userID) {
			return TxNone, nil
		}

		removeMemberFromGroup(g, userID)
		if g.MemberCount == 0 {
			return TxDelete, nil
		}

		if g.CreatedBy == userID {
			// Succession is explicitly arbitrary: any remaining member.
			g.CreatedBy = g.MemberIDs[s.intn(len(g.MemberIDs))]
			newCreator = g.CreatedBy
			remaining = append([]string(nil), g.MemberIDs...)
		}
		return TxWrite, nil
	})
}

// RemoveMember lets the creator remove another member. The creator cannot be
// removed and cannot remove themselves through this path.
func (s *MembershipService) RemoveMember(ctx context.Context, groupID, memberID, callerID string) error {
	if groupID == "" || memberID == "" || callerID == "" {
		return ErrMissingParameters
	}
	if memberID == callerID {
		return fmt.Errorf("%w: use leave to remove yourself", ErrUnauthorized)
	}

	err := s.Groups.MutateGroup(ctx, groupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if !HasPermission(g, callerID, models.ActionRemoveMember) {
			return TxNone, ErrUnauthorized
		}
		if memberID == g.CreatedBy {
			return TxNone, fmt.Errorf("%w: the creator cannot be removed", ErrUnauthorized)
		}
		if !g.HasMember(memberID) {
			return TxNone, ErrNotAMember
		}

		removeMemberFromGroup(g, memberID)
		if g.MemberCount == 0 {
			return TxDelete, nil
		}
		return TxWrite, nil
	})
	if err != nil {
		return err
	}

	s.Cleanup.Run(ctx, memberID, groupID)
	return nil
}

// MakeMemberCreator irreversibly transfers the creator role to an existing
// member. Membership and counts are untouched.
func (s *MembershipService) MakeMemberCreator(ctx context.Context, groupID, targetID, callerID string) error {
	if groupID == "" || targetID == "" || callerID == "" {
		return ErrMissingParameters
	}

	var members []string
	err := s.Groups.MutateGroup(ctx, groupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if !HasPermission(g, callerID, models.ActionMakeCreator) {
			return TxNone, ErrUnauthorized
		}
		if !g.HasMember(targetID) {
			return TxNone, ErrNotAMember
		}
		if targetID == g.CreatedBy {
			return TxNone, fmt.Errorf("%w: user is already the creator", ErrAlreadyProcessed)
		}

		g.CreatedBy = targetID
		members = append([]string(nil), g.MemberIDs...)
		return TxWrite, nil
	})
	if err != nil {
		return err
	}

	if err := s.Meta.UpdateCreator(ctx, groupID, members, targetID); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("groupId", groupID).Warn("failed to propagate new creator to projections")
	}
	return nil
}

// removeMemberFromGroup drops userID from every membership structure and
// recomputes the count so the mirror invariant holds.
func removeMemberFromGroup(g *models.Group, userID string) {
	ids := g.MemberIDs[:0]
	for _, id := range g.MemberIDs {
		if id != userID {
			ids = append(ids, id)
		}
	}
	g.MemberIDs = ids

	muted := g.MutedIDs[:0]
	for _, id := range g.MutedIDs {
		if id != userID {
			muted = append(muted, id)
		}
	}
	g.MutedIDs = muted

	delete(g.Members, userID)
	g.MemberCount = len(g.MemberIDs)
}
