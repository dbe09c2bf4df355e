package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAliasResolution(t *testing.T) {
	ro := NewRoster()
	ro.JoinAsPrimary("a", "Alice")
	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))

	primary, err := ro.ResolvePrimary("b")
	require.NoError(t, err)
	assert.Equal(t, "a", primary)

	primary, err = ro.ResolvePrimary("a")
	require.NoError(t, err)
	assert.Equal(t, "a", primary)

	_, err = ro.ResolvePrimary("ghost")
	assert.ErrorIs(t, err, ErrParticipantNotInRace)

	assert.True(t, ro.IsLeader("a"))
	assert.False(t, ro.IsLeader("b"))
	assert.True(t, ro.IsParticipant("b"))
}

func TestAttachSecondaryUnknownLeader(t *testing.T) {
	ro := NewRoster()
	assert.ErrorIs(t, ro.AttachSecondary("ghost", "b", "Bob"), ErrParticipantNotInRace)
}

func TestDetachExactPairMatch(t *testing.T) {
	ro := NewRoster()
	ro.JoinAsPrimary("a", "Alice")
	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))

	// Wrong display name leaves the member list untouched; only the alias
	// entry goes away.
	ro.Detach("b", "NotBob")
	members, err := ro.Members("a")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.False(t, ro.IsParticipant("b"))

	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))
	ro.Detach("b", "Bob")
	members, err = ro.Members("a")
	require.NoError(t, err)
	assert.Len(t, members, 2) // original stale entry plus Alice

	// Detaching someone on no member list is not an error.
	ro.Detach("ghost", "Ghost")
}

func TestRemoveTeamCleansAliases(t *testing.T) {
	ro := NewRoster()
	ro.JoinAsPrimary("a", "Alice")
	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))
	ro.JoinAsPrimary("c", "Carol")

	ro.RemoveTeam("a")
	assert.False(t, ro.IsParticipant("a"))
	assert.False(t, ro.IsParticipant("b"))
	assert.True(t, ro.IsParticipant("c"))

	_, err := ro.Members("a")
	assert.ErrorIs(t, err, ErrParticipantNotInRace)

	// Removing an absent team is a no-op.
	ro.RemoveTeam("a")
}

func TestTeamReportAndAllMembers(t *testing.T) {
	ro := NewRoster()
	ro.JoinAsPrimary("a", "Alice")
	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))
	ro.JoinAsPrimary("c", "Carol")

	assert.Equal(t, "Teams:\nAlice: Alice, Bob\nCarol: Carol\n", ro.TeamReport())

	all := ro.AllMembers()
	require.Len(t, all, 3)
	assert.Equal(t, "Alice", all[0].DisplayName)
	assert.Equal(t, "Bob", all[1].DisplayName)
	assert.Equal(t, "Carol", all[2].DisplayName)
}

func TestRejoinAsPrimaryResetsTeam(t *testing.T) {
	ro := NewRoster()
	ro.JoinAsPrimary("a", "Alice")
	require.NoError(t, ro.AttachSecondary("a", "b", "Bob"))

	ro.JoinAsPrimary("a", "Alice")
	members, err := ro.Members("a")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
