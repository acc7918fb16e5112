package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"bloxmate_server/models"
)

// testGroup builds an active group whose first member is the creator.
func testGroup(groupID, creatorID string, memberIDs ...string) *models.Group {
	ids := append([]string{creatorID}, memberIDs...)
	members := make(map[string]models.GroupMember, len(ids))
	for _, id := range ids {
		members[id] = models.GroupMember{DisplayName: "user " + id, JoinedAt: time.Unix(1700000000, 0).UTC()}
	}
	return &models.Group{
		GroupID:     groupID,
		Name:        "Obby Squad",
		Description: "weekend obby runs",
		CreatedBy:   creatorID,
		MemberIDs:   ids,
		Members:     members,
		MemberCount: len(ids),
		MaxMembers:  models.MaxGroupMembers,
		IsActive:    true,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

// In-memory store fakes with per-call error injection. They keep the same
// copy-on-read discipline as the production stores so tests catch services
// that mutate outside a transaction.

func cloneGroup(g *models.Group) *models.Group {
	c := *g
	c.MemberIDs = append([]string(nil), g.MemberIDs...)
	c.MutedIDs = append([]string(nil), g.MutedIDs...)
	c.Members = make(map[string]models.GroupMember, len(g.Members))
	for k, v := range g.Members {
		c.Members[k] = v
	}
	return &c
}

type fakeGroupStore struct {
	groups map[string]*models.Group

	getErr    error
	createErr error
	mutateErr error
	deleteErr error
	findErr   error
	scanErr   error
}

func newFakeGroupStore(groups ...*models.Group) *fakeGroupStore {
	s := &fakeGroupStore{groups: make(map[string]*models.Group)}
	for _, g := range groups {
		s.groups[g.GroupID] = cloneGroup(g)
	}
	return s
}

func (s *fakeGroupStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

func (s *fakeGroupStore) CreateGroup(ctx context.Context, g *models.Group) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.groups[g.GroupID] = cloneGroup(g)
	return nil
}

func (s *fakeGroupStore) MutateGroup(ctx context.Context, groupID string, fn GroupTxFunc) error {
	if s.mutateErr != nil {
		return s.mutateErr
	}
	var working *models.Group
	if g, ok := s.groups[groupID]; ok {
		working = cloneGroup(g)
	}
	outcome, err := fn(working)
	if err != nil {
		return err
	}
	switch outcome {
	case TxWrite:
		s.groups[groupID] = working
	case TxDelete:
		delete(s.groups, groupID)
	}
	return nil
}

func (s *fakeGroupStore) DeleteGroup(ctx context.Context, groupID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.groups, groupID)
	return nil
}

func (s *fakeGroupStore) FindActiveGroupByCreator(ctx context.Context, creatorID string) (*models.Group, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, g := range s.groups {
		if g.CreatedBy == creatorID && g.IsActive {
			return cloneGroup(g), nil
		}
	}
	return nil, nil
}

func (s *fakeGroupStore) GroupsForMember(ctx context.Context, userID string) ([]models.Group, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	var out []models.Group
	for _, g := range s.groups {
		if g.HasMember(userID) {
			out = append(out, *cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

type fakeInviteStore struct {
	invites map[string]*models.Invitation

	putErr    error
	updateErr error
	findErr   error
	listErr   error
}

func newFakeInviteStore(invites ...*models.Invitation) *fakeInviteStore {
	s := &fakeInviteStore{invites: make(map[string]*models.Invitation)}
	for _, inv := range invites {
		c := *inv
		s.invites[inv.InviteID] = &c
	}
	return s
}

func (s *fakeInviteStore) GetInvite(ctx context.Context, inviteID string) (*models.Invitation, error) {
	inv, ok := s.invites[inviteID]
	if !ok {
		return nil, ErrInviteNotFound
	}
	c := *inv
	return &c, nil
}

func (s *fakeInviteStore) PutInvite(ctx context.Context, inv *models.Invitation) error {
	if s.putErr != nil {
		return s.putErr
	}
	c := *inv
	s.invites[inv.InviteID] = &c
	return nil
}

func (s *fakeInviteStore) UpdateInviteStatus(ctx context.Context, inviteID, status string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if inv, ok := s.invites[inviteID]; ok {
		inv.Status = status
	}
	return nil
}

func (s *fakeInviteStore) FindPendingInvite(ctx context.Context, groupID, invitedUserID string) (*models.Invitation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, inv := range s.invites {
		if inv.GroupID == groupID && inv.InvitedUserID == invitedUserID && inv.Status == models.InviteStatusPending {
			c := *inv
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeInviteStore) PendingInvitesForUser(ctx context.Context, userID string) ([]models.Invitation, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Invitation
	for _, inv := range s.invites {
		if inv.InvitedUserID == userID && inv.Status == models.InviteStatusPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *fakeInviteStore) InvitesForGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Invitation
	for _, inv := range s.invites {
		if inv.GroupID == groupID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *fakeInviteStore) DeleteInvite(ctx context.Context, inviteID string) error {
	delete(s.invites, inviteID)
	return nil
}

type fakeJoinRequestStore struct {
	requests map[string]*models.JoinRequest

	putErr    error
	updateErr error
	findErr   error
	listErr   error
}

func newFakeJoinRequestStore(requests ...*models.JoinRequest) *fakeJoinRequestStore {
	s := &fakeJoinRequestStore{requests: make(map[string]*models.JoinRequest)}
	for _, r := range requests {
		c := *r
		s.requests[r.RequestID] = &c
	}
	return s
}

func (s *fakeJoinRequestStore) GetRequest(ctx context.Context, requestID string) (*models.JoinRequest, error) {
	r, ok := s.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	c := *r
	return &c, nil
}

func (s *fakeJoinRequestStore) PutRequest(ctx context.Context, req *models.JoinRequest) error {
	if s.putErr != nil {
		return s.putErr
	}
	c := *req
	s.requests[req.RequestID] = &c
	return nil
}

func (s *fakeJoinRequestStore) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if r, ok := s.requests[requestID]; ok {
		r.Status = status
	}
	return nil
}

func (s *fakeJoinRequestStore) FindPendingRequest(ctx context.Context, groupID, requesterID string) (*models.JoinRequest, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, r := range s.requests {
		if r.GroupID == groupID && r.RequesterID == requesterID && r.Status == models.RequestStatusPending {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeJoinRequestStore) PendingRequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.JoinRequest
	for _, r := range s.requests {
		if r.GroupID == groupID && r.Status == models.RequestStatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeJoinRequestStore) RequestsForGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.JoinRequest
	for _, r := range s.requests {
		if r.GroupID == groupID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeJoinRequestStore) DeleteRequest(ctx context.Context, requestID string) error {
	delete(s.requests, requestID)
	return nil
}

type fakeMetaStore struct {
	metas    map[string]*models.GroupMeta
	mirrors  map[string]map[string]bool
	messages map[string][]models.GroupMessage
	profiles map[string]*models.UserIdentity

	writeErr   error
	deleteErr  error
	deleteNoop bool
	clearErr   error
	clearNoop  bool
	existsErr  error
	mirrorErr  error
	fanOutErr  error
	creatorErr error

	cleanedUsers []string
	creatorID    string
}

func newFakeMetaStore() *fakeMetaStore {
	return &fakeMetaStore{
		metas:    make(map[string]*models.GroupMeta),
		mirrors:  make(map[string]map[string]bool),
		messages: make(map[string][]models.GroupMessage),
		profiles: make(map[string]*models.UserIdentity),
	}
}

func metaKey(userID, groupID string) string { return userID + ":" + groupID }

func (s *fakeMetaStore) WriteMeta(ctx context.Context, userID string, meta *models.GroupMeta) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	c := *meta
	s.metas[metaKey(userID, meta.GroupID)] = &c
	if s.mirrors[meta.GroupID] == nil {
		s.mirrors[meta.GroupID] = make(map[string]bool)
	}
	s.mirrors[meta.GroupID][userID] = true
	return nil
}

func (s *fakeMetaStore) GetMeta(ctx context.Context, userID, groupID string) (*models.GroupMeta, error) {
	meta, ok := s.metas[metaKey(userID, groupID)]
	if !ok || meta.GroupID == "" {
		return nil, nil
	}
	c := *meta
	return &c, nil
}

func (s *fakeMetaStore) MetaExists(ctx context.Context, userID, groupID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	meta, ok := s.metas[metaKey(userID, groupID)]
	return ok && meta.GroupID != "", nil
}

func (s *fakeMetaStore) DeleteMeta(ctx context.Context, userID, groupID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.cleanedUsers = append(s.cleanedUsers, userID)
	if s.deleteNoop {
		return nil
	}
	delete(s.metas, metaKey(userID, groupID))
	if m := s.mirrors[groupID]; m != nil {
		delete(m, userID)
	}
	return nil
}

func (s *fakeMetaStore) ClearMeta(ctx context.Context, userID, groupID string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	if s.clearNoop {
		return nil
	}
	s.metas[metaKey(userID, groupID)] = &models.GroupMeta{}
	if m := s.mirrors[groupID]; m != nil {
		delete(m, userID)
	}
	return nil
}

func (s *fakeMetaStore) MetasForUser(ctx context.Context, userID string) ([]models.GroupMeta, error) {
	var out []models.GroupMeta
	for key, meta := range s.metas {
		if strings.HasPrefix(key, userID+":") && meta.GroupID != "" {
			out = append(out, *meta)
		}
	}
	return out, nil
}

func (s *fakeMetaStore) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	if s.mirrorErr != nil {
		return nil, s.mirrorErr
	}
	var out []string
	for userID := range s.mirrors[groupID] {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeMetaStore) DeleteGroupMirror(ctx context.Context, groupID string) error {
	if s.mirrorErr != nil {
		return s.mirrorErr
	}
	delete(s.mirrors, groupID)
	return nil
}

func (s *fakeMetaStore) AppendMessage(ctx context.Context, msg *models.GroupMessage) error {
	s.messages[msg.GroupID] = append(s.messages[msg.GroupID], *msg)
	return nil
}

func (s *fakeMetaStore) Messages(ctx context.Context, groupID string, limit int) ([]models.GroupMessage, error) {
	log := s.messages[groupID]
	// Newest first, like the production LPUSH log.
	var out []models.GroupMessage
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

func (s *fakeMetaStore) DeleteMessageLog(ctx context.Context, groupID string) error {
	delete(s.messages, groupID)
	return nil
}

func (s *fakeMetaStore) FanOutMessage(ctx context.Context, groupID string, memberIDs []string, senderID string, msg *models.GroupMessage) error {
	if s.fanOutErr != nil {
		return s.fanOutErr
	}
	for _, memberID := range memberIDs {
		meta, ok := s.metas[metaKey(memberID, groupID)]
		if !ok {
			meta = &models.GroupMeta{GroupID: groupID}
			s.metas[metaKey(memberID, groupID)] = meta
		}
		meta.LastMessage = msg.Text
		meta.LastMessageTimestamp = msg.CreatedAt
		if memberID != senderID {
			meta.UnreadCount++
		}
	}
	return nil
}

func (s *fakeMetaStore) ResetUnread(ctx context.Context, userID, groupID string) error {
	if meta, ok := s.metas[metaKey(userID, groupID)]; ok {
		meta.UnreadCount = 0
	}
	return nil
}

func (s *fakeMetaStore) SetMuted(ctx context.Context, userID, groupID string, muted bool) error {
	if meta, ok := s.metas[metaKey(userID, groupID)]; ok {
		meta.Muted = muted
	}
	return nil
}

func (s *fakeMetaStore) UpdateGroupInfo(ctx context.Context, groupID string, memberIDs []string, name, avatar string) error {
	for _, memberID := range memberIDs {
		if meta, ok := s.metas[metaKey(memberID, groupID)]; ok {
			meta.GroupName = name
			meta.GroupAvatar = avatar
		}
	}
	return nil
}

func (s *fakeMetaStore) UpdateCreator(ctx context.Context, groupID string, memberIDs []string, creatorID string) error {
	if s.creatorErr != nil {
		return s.creatorErr
	}
	s.creatorID = creatorID
	for _, memberID := range memberIDs {
		if meta, ok := s.metas[metaKey(memberID, groupID)]; ok {
			meta.CreatedBy = creatorID
		}
	}
	return nil
}

func (s *fakeMetaStore) GetUserProfile(ctx context.Context, userID string) (*models.UserIdentity, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

type fakeBroadcaster struct {
	groupID string
	event   string
	payload interface{}
	count   int
}

func (b *fakeBroadcaster) BroadcastToGroup(groupID, event string, payload interface{}) {
	b.groupID = groupID
	b.event = event
	b.payload = payload
	b.count++
}
