package services

import (
	"context"
	"testing"
	"time"

	"bloxmate_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newInviteService(groups *fakeGroupStore, invites *fakeInviteStore, meta *fakeMetaStore, now time.Time) *InviteService {
	return &InviteService{
		Groups:  groups,
		Invites: invites,
		Meta:    meta,
		Clock:   fixedClock(now),
	}
}

func TestSendInvite(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore()
	meta := newFakeMetaStore()
	meta.profiles["bob"] = &models.UserIdentity{UserID: "bob", DisplayName: "Bob", Avatar: "bob.png"}
	svc := newInviteService(groups, invites, meta, now)

	invite, err := svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	assert.NotEmpty(t, invite.InviteID)
	assert.Equal(t, "g1", invite.GroupID)
	assert.Equal(t, "Obby Squad", invite.GroupName)
	assert.Equal(t, "alice", invite.InvitedBy)
	assert.Equal(t, "bob", invite.InvitedUserID)
	assert.Equal(t, "Bob", invite.InviteeName)
	assert.Equal(t, models.InviteStatusPending, invite.Status)
	assert.Equal(t, now.AddDate(0, 0, models.InviteTTLDays), invite.ExpiresAt)
}

func TestSendInviteAlreadyMember(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore(testGroup("g1", "alice", "bob"))
	svc := newInviteService(groups, newFakeInviteStore(), newFakeMetaStore(), time.Now())

	_, err := svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice"})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestSendInviteGroupFull(t *testing.T) {
	ctx := context.Background()
	g := testGroup("g1", "alice")
	g.MaxMembers = 1
	groups := newFakeGroupStore(g)
	svc := newInviteService(groups, newFakeInviteStore(), newFakeMetaStore(), time.Now())

	_, err := svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice"})
	assert.ErrorIs(t, err, ErrGroupFull)
}

func TestSendInviteDuplicatePending(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore()
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	_, err := svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice"})
	require.NoError(t, err)

	_, err = svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice"})
	assert.ErrorIs(t, err, ErrDuplicateInvite)
}

func TestSendInviteAfterExpiredInvite(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(&models.Invitation{
		InviteID:      "inv-old",
		GroupID:       "g1",
		InvitedBy:     "alice",
		InvitedUserID: "bob",
		Status:        models.InviteStatusPending,
		CreatedAt:     now.AddDate(0, 0, -10),
		ExpiresAt:     now.AddDate(0, 0, -3),
	})
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	// An expired pending invite does not block a fresh one.
	_, err := svc.SendInvite(ctx, "g1", "bob", models.UserIdentity{UserID: "alice"})
	assert.NoError(t, err)
}

func TestSendInviteMissingParameters(t *testing.T) {
	ctx := context.Background()
	svc := newInviteService(newFakeGroupStore(), newFakeInviteStore(), newFakeMetaStore(), time.Now())

	_, err := svc.SendInvite(ctx, "", "bob", models.UserIdentity{UserID: "alice"})
	assert.ErrorIs(t, err, ErrMissingParameters)

	_, err = svc.SendInvite(ctx, "g1", "", models.UserIdentity{UserID: "alice"})
	assert.ErrorIs(t, err, ErrMissingParameters)
}

func pendingInvite(inviteID, groupID, invitee string, now time.Time) *models.Invitation {
	return &models.Invitation{
		InviteID:      inviteID,
		GroupID:       groupID,
		InvitedBy:     "alice",
		InvitedUserID: invitee,
		InviteeName:   "user " + invitee,
		Status:        models.InviteStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, models.InviteTTLDays),
	}
}

func TestAcceptInvite(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	meta := newFakeMetaStore()
	svc := newInviteService(groups, invites, meta, now)

	require.NoError(t, svc.AcceptInvite(ctx, "inv1", "bob"))

	g := groups.groups["g1"]
	assert.True(t, g.HasMember("bob"))
	assert.Equal(t, 2, g.MemberCount)
	assert.Len(t, g.MemberIDs, g.MemberCount)

	inv := invites.invites["inv1"]
	assert.Equal(t, models.InviteStatusAccepted, inv.Status)

	m, err := meta.GetMeta(ctx, "bob", "g1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Obby Squad", m.GroupName)
	assert.Equal(t, "alice", m.CreatedBy)
}

func TestAcceptInviteTwiceIsAlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	require.NoError(t, svc.AcceptInvite(ctx, "inv1", "bob"))
	err := svc.AcceptInvite(ctx, "inv1", "bob")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestAcceptInviteWrongUser(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	err := svc.AcceptInvite(ctx, "inv1", "mallory")
	assert.ErrorIs(t, err, ErrNotYourInvite)
}

func TestAcceptInviteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now.AddDate(0, 0, -8)))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	err := svc.AcceptInvite(ctx, "inv1", "bob")
	assert.ErrorIs(t, err, ErrInviteExpired)
}

func TestAcceptInviteGroupFull(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	g := testGroup("g1", "alice", "carol")
	g.MaxMembers = 2
	groups := newFakeGroupStore(g)
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	err := svc.AcceptInvite(ctx, "inv1", "bob")
	assert.ErrorIs(t, err, ErrGroupFull)
}

func TestAcceptInviteGroupGone(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	svc := newInviteService(newFakeGroupStore(), invites, newFakeMetaStore(), now)

	err := svc.AcceptInvite(ctx, "inv1", "bob")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

// Two pending invites for the same user can coexist after a send race. The
// first accept wins membership; the second collapses to already-member.
func TestAcceptDuplicateInvites(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(
		pendingInvite("inv1", "g1", "bob", now),
		pendingInvite("inv2", "g1", "bob", now),
	)
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	require.NoError(t, svc.AcceptInvite(ctx, "inv1", "bob"))
	err := svc.AcceptInvite(ctx, "inv2", "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	g := groups.groups["g1"]
	assert.Equal(t, 2, g.MemberCount)
}

// A failed projection write never fails the join; the projection self-heals
// on the next listing.
func TestAcceptInviteSurvivesMetaWriteFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	meta := newFakeMetaStore()
	meta.writeErr = assert.AnError
	svc := newInviteService(groups, invites, meta, now)

	require.NoError(t, svc.AcceptInvite(ctx, "inv1", "bob"))
	assert.True(t, groups.groups["g1"].HasMember("bob"))
}

func TestDeclineInvite(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "bob", now))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	require.NoError(t, svc.DeclineInvite(ctx, "inv1", "bob"))
	assert.Equal(t, models.InviteStatusDeclined, invites.invites["inv1"].Status)
	assert.False(t, groups.groups["g1"].HasMember("bob"))

	err := svc.DeclineInvite(ctx, "inv1", "bob")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestPendingInvitesForUserFiltersExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	invites := newFakeInviteStore(
		pendingInvite("inv-live", "g1", "bob", now),
		pendingInvite("inv-stale", "g2", "bob", now.AddDate(0, 0, -8)),
	)
	svc := newInviteService(newFakeGroupStore(), invites, newFakeMetaStore(), now)

	out, err := svc.PendingInvitesForUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "inv-live", out[0].InviteID)
}

func TestInvitesForGroupCreatorOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	groups := newFakeGroupStore(testGroup("g1", "alice", "bob"))
	invites := newFakeInviteStore(pendingInvite("inv1", "g1", "carol", now))
	svc := newInviteService(groups, invites, newFakeMetaStore(), now)

	out, err := svc.InvitesForGroup(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.InvitesForGroup(ctx, "g1", "bob")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
