package team_test

import (
	"testing"

	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GetTeamView(t *testing.T) {
	t.Run("no team", func(t *testing.T) {
		svc, db := newTeamService(t)
		bob := sessionOf(t, db, "bob@example.com")
		testutil.CreateTestMembership(t, db, 3, "alice@example.com", true, true)
		testutil.CreateTestMembership(t, db, 3, "bob@example.com", false, false)

		view, err := svc.GetTeamView(testutil.TestContext(t), bob)
		require.NoError(t, err)
		assert.Nil(t, view.TeamNum)
		assert.Nil(t, view.Self)
		assert.Empty(t, view.Members)
		require.Len(t, view.PendingInvites, 1)
		assert.Equal(t, 3, view.PendingInvites[0].TeamNum)
		assert.True(t, view.CanInvite)
	})

	t.Run("founder sees members joined with usernames", func(t *testing.T) {
		svc, db := newTeamService(t)
		alice := sessionOf(t, db, "alice@example.com")
		testutil.CreateTestUserWithEmail(t, db, "bob@example.com")
		testutil.CreateTestTeam(t, db, 1, "alice@example.com", "bob@example.com")
		testutil.CreateTestMembership(t, db, 1, "nobody@example.com", false, false)

		view, err := svc.GetTeamView(testutil.TestContext(t), alice)
		require.NoError(t, err)
		require.NotNil(t, view.TeamNum)
		assert.Equal(t, 1, *view.TeamNum)
		assert.True(t, view.IsFounder)
		assert.Equal(t, 2, view.ApprovedCount)
		assert.True(t, view.CanInvite)

		require.Len(t, view.Members, 3)
		assert.Equal(t, "alice@example.com", view.Members[0].Invite)
		assert.Equal(t, "Test Seller", view.Members[0].Username)
		assert.Equal(t, models.RoleSeller, view.Members[0].Role)

		for _, m := range view.Members {
			if m.Invite == "nobody@example.com" {
				assert.Empty(t, m.Username)
				assert.False(t, m.Approved)
			}
		}
	})

	t.Run("full team cannot invite", func(t *testing.T) {
		svc, db := newTeamService(t)
		bob := sessionOf(t, db, "bob@example.com")
		testutil.CreateTestTeam(t, db, 1, "alice@example.com", "bob@example.com", "carol@example.com")

		view, err := svc.GetTeamView(testutil.TestContext(t), bob)
		require.NoError(t, err)
		assert.False(t, view.IsFounder)
		assert.False(t, view.CanInvite)
	})
}

func TestService_ResolveVisibleEmails(t *testing.T) {
	svc, db := newTeamService(t)
	ctx := testutil.TestContext(t)

	testutil.CreateTestTeam(t, db, 1, "alice@example.com", "bob@example.com", "carol@example.com")
	testutil.CreateTestMembership(t, db, 1, "pending@example.com", false, false)

	t.Run("no team returns self", func(t *testing.T) {
		emails, err := svc.ResolveVisibleEmails(ctx, "solo@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"solo@example.com"}, emails)
	})

	t.Run("pending invitee still sees only self", func(t *testing.T) {
		emails, err := svc.ResolveVisibleEmails(ctx, "pending@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"pending@example.com"}, emails)
	})

	t.Run("every member sees the whole team", func(t *testing.T) {
		want := []string{"alice@example.com", "bob@example.com", "carol@example.com"}
		for _, who := range want {
			emails, err := svc.ResolveVisibleEmails(ctx, who)
			require.NoError(t, err)
			assert.Equal(t, want, emails, "queried as %s", who)
		}
	})
}

func TestService_CanView(t *testing.T) {
	svc, db := newTeamService(t)
	ctx := testutil.TestContext(t)

	testutil.CreateTestTeam(t, db, 1, "alice@example.com", "bob@example.com")
	testutil.CreateTestMembership(t, db, 1, "pending@example.com", false, false)
	testutil.CreateTestTeam(t, db, 2, "zed@example.com")

	tests := []struct {
		viewer, owner string
		want          bool
	}{
		{"alice@example.com", "alice@example.com", true},
		{"solo@example.com", "solo@example.com", true},
		{"alice@example.com", "bob@example.com", true},
		{"bob@example.com", "alice@example.com", true},
		{"alice@example.com", "pending@example.com", false},
		{"pending@example.com", "alice@example.com", false},
		{"alice@example.com", "zed@example.com", false},
		{"solo@example.com", "alice@example.com", false},
	}

	for _, tt := range tests {
		got, err := svc.CanView(ctx, tt.viewer, tt.owner)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s viewing %s", tt.viewer, tt.owner)
	}

	num, err := svc.TeamNumFor(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, num)
	assert.Equal(t, 1, *num)

	num, err = svc.TeamNumFor(ctx, "solo@example.com")
	require.NoError(t, err)
	assert.Nil(t, num)
}
