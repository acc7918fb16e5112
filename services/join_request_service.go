package services

import (
	"context"
	"time"

	"bloxmate_server/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JoinRequestService handles users asking to join a group and the creator
// approving or rejecting them. The group creator id is denormalized onto the
// request so approval authorization needs no group read.
type JoinRequestService struct {
	Groups   GroupStore
	Requests JoinRequestStore
	Meta     MetaStore
	Log      *logrus.Logger
	Clock    func() time.Time
}

func (s *JoinRequestService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// SendJoinRequest creates a pending request. Same query-then-insert duplicate
// guard as invitations, with the same documented race.
func (s *JoinRequestService) SendJoinRequest(ctx context.Context, groupID string, requester models.UserIdentity) (*models.JoinRequest, error) {
	if groupID == "" || requester.UserID == "" {
		return nil, ErrMissingParameters
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.HasMember(requester.UserID) {
		return nil, ErrAlreadyMember
	}
	if group.IsFull() {
		return nil, ErrGroupFull
	}

	existing, err := s.Requests.FindPendingRequest(ctx, groupID, requester.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRequest
	}

	request := &models.JoinRequest{
		RequestID:       uuid.New().String(),
		GroupID:         groupID,
		GroupName:       group.Name,
		RequesterID:     requester.UserID,
		RequesterName:   requester.DisplayName,
		RequesterAvatar: requester.Avatar,
		CreatorID:       group.CreatedBy,
		Status:          models.RequestStatusPending,
		CreatedAt:       s.now(),
	}

	if err := s.Requests.PutRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ApproveJoinRequest adds the requester to the group. When the requester
// turned out to be a member already (for example through a parallel invite),
// the request is still marked approved and alreadyMember is true — a
// non-fatal signal, not an error.
func (s *JoinRequestService) ApproveJoinRequest(ctx context.Context, requestID, callerID string) (alreadyMember bool, err error) {
	if requestID == "" || callerID == "" {
		return false, ErrMissingParameters
	}

	request, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	if request.CreatorID != callerID {
		return false, ErrUnauthorized
	}
	if request.Status != models.RequestStatusPending {
		return false, ErrAlreadyProcessed
	}

	joinedAt := s.now()
	var meta *models.GroupMeta
	err = s.Groups.MutateGroup(ctx, request.GroupID, func(g *models.Group) (TxOutcome, error) {
		if g == nil {
			return TxNone, ErrGroupNotFound
		}
		if g.HasMember(request.RequesterID) {
			alreadyMember = true
			return TxNone, nil
		}
		if g.IsFull() {
			return TxNone, ErrGroupFull
		}

		g.MemberIDs = append(g.MemberIDs, request.RequesterID)
		if g.Members == nil {
			g.Members = make(map[string]models.GroupMember)
		}
		g.Members[request.RequesterID] = models.GroupMember{
			DisplayName: request.RequesterName,
			Avatar:      request.RequesterAvatar,
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
		return false, err
	}

	if err := s.Requests.UpdateRequestStatus(ctx, requestID, models.RequestStatusApproved); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("requestId", requestID).Warn("failed to mark join request approved")
	}

	if meta != nil {
		if err := s.Meta.WriteMeta(ctx, request.RequesterID, meta); err != nil && s.Log != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{"userId": request.RequesterID, "groupId": request.GroupID}).
				Warn("group meta write failed after approval, will self-heal on next listing")
		}
	}
	return alreadyMember, nil
}

// RejectJoinRequest marks the request rejected. Creator only.
func (s *JoinRequestService) RejectJoinRequest(ctx context.Context, requestID, callerID string) error {
	if requestID == "" || callerID == "" {
		return ErrMissingParameters
	}

	request, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.CreatorID != callerID {
		return ErrUnauthorized
	}
	if request.Status != models.RequestStatusPending {
		return ErrAlreadyProcessed
	}

	return s.Requests.UpdateRequestStatus(ctx, requestID, models.RequestStatusRejected)
}

// PendingRequestsForGroup lists open requests for the group creator.
func (s *JoinRequestService) PendingRequestsForGroup(ctx context.Context, groupID, callerID string) ([]models.JoinRequest, error) {
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
	return s.Requests.PendingRequestsForGroup(ctx, groupID)
}
