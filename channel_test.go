package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMemberIdempotent(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.addMember(alice)

	assert.Len(t, ch.Members, 1)
	assert.Equal(t, "alice", ch.MemberNicks[alice.ID])
	assert.Equal(t, "alice", ch.MemberUsers[alice.ID])
}

func TestRemoveMemberPromotesFirstOperator(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")
	bob := newRegisteredClient(t, s, 2, "bob")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)
	ch.addMember(bob)

	require.True(t, ch.isOperator(alice.ID))
	require.False(t, ch.isOperator(bob.ID))

	ch.removeMember(alice.ID)

	assert.False(t, ch.isMember(alice.ID))
	assert.True(t, ch.isOperator(bob.ID),
		"remaining member takes over when the first operator leaves")

	// Operators are always members.
	for id := range ch.Operators {
		assert.True(t, ch.isMember(id))
	}
}

func TestRemoveMemberLastOne(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)
	ch.removeMember(alice.ID)

	assert.Empty(t, ch.Members)
	assert.Empty(t, ch.Operators)
	assert.False(t, ch.hasFirstOp)
}

func TestRemoveMemberClearsInvite(t *testing.T) {
	s := newTestServer()
	bob := newRegisteredClient(t, s, 2, "bob")

	ch := newChannel("#chat")
	ch.invite("bob")
	ch.addMember(bob)

	require.True(t, ch.isInvited("bob"))
	ch.removeMember(bob.ID)
	assert.False(t, ch.isInvited("bob"))
}

func TestNamesList(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	assert.Equal(t, "@alice", ch.namesList())

	bob := newRegisteredClient(t, s, 2, "bob")
	ch.addMember(bob)

	names := ch.namesList()
	assert.Contains(t, names, "@alice")
	assert.Contains(t, names, "bob")
}

func TestSetModeFlags(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	ch.setMode("+i", "", alice)
	assert.True(t, ch.InviteOnly)
	ch.setMode("-i", "", alice)
	assert.False(t, ch.InviteOnly)

	ch.setMode("+t", "", alice)
	assert.True(t, ch.TopicRestricted)
	ch.setMode("-t", "", alice)
	assert.False(t, ch.TopicRestricted)

	ch.setMode("+k", "hunter2", alice)
	assert.Equal(t, "hunter2", ch.Key)
	ch.setMode("-k", "", alice)
	assert.Equal(t, "", ch.Key)

	ch.setMode("+l", "5", alice)
	assert.Equal(t, 5, ch.UserLimit)
	ch.setMode("-l", "", alice)
	assert.Equal(t, 0, ch.UserLimit)

	assert.Empty(t, drainMessages(alice), "successful flag changes are silent")
}

func TestSetModeKeyNeedsParameter(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	ch.setMode("+k", "", alice)

	messages := drainMessages(alice)
	require.Len(t, messages, 1)
	assert.Equal(t, "461", messages[0].Command)
	assert.Equal(t, []string{"alice", "MODE", "Not enough parameters for +k"},
		messages[0].Params)
	assert.Equal(t, "", ch.Key)
}

func TestSetModeLimitValidation(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	for _, param := range []string{"", "abc", "0", "-3"} {
		ch.setMode("+l", param, alice)

		messages := drainMessages(alice)
		require.Len(t, messages, 1, "param %q", param)
		assert.Equal(t, "461", messages[0].Command)
		assert.Equal(t, []string{"alice", "MODE", "Invalid parameter for +l"},
			messages[0].Params)
		assert.Equal(t, 0, ch.UserLimit)
	}
}

func TestSetModeOperatorGrant(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")
	bob := newRegisteredClient(t, s, 2, "bob")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)
	ch.addMember(bob)

	ch.setMode("+o", "bob", alice)

	assert.True(t, ch.isOperator(bob.ID))

	// Both members hear about the grant.
	for _, c := range []*Client{alice, bob} {
		messages := drainMessages(c)
		require.Len(t, messages, 1)
		assert.Equal(t, "MODE", messages[0].Command)
		assert.Equal(t, "alice!alice@localhost", messages[0].Prefix)
		assert.Equal(t, []string{"#chat", "+o", "bob"}, messages[0].Params)
	}
}

func TestSetModeOperatorGrantUnknownNick(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	ch.setMode("+o", "mallory", alice)

	messages := drainMessages(alice)
	require.Len(t, messages, 1)
	assert.Equal(t, "401", messages[0].Command)
	assert.Equal(t, []string{"alice", "mallory", "No such nick/channel"},
		messages[0].Params)
}

func TestSetModeSelfDemotion(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	ch.setMode("-o", "alice", alice)

	assert.False(t, ch.isOperator(alice.ID))

	messages := drainMessages(alice)
	require.Len(t, messages, 1)
	assert.Equal(t, "341", messages[0].Command)
	assert.Equal(t, []string{"alice", "alice", "#chat",
		"Operator privileges removed"}, messages[0].Params)
}

func TestSetModeCannotDemoteAnother(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")
	bob := newRegisteredClient(t, s, 2, "bob")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)
	ch.addMember(bob)
	ch.grantOperator(bob.ID)

	ch.setMode("-o", "bob", alice)

	assert.True(t, ch.isOperator(bob.ID))

	messages := drainMessages(alice)
	require.Len(t, messages, 1)
	assert.Equal(t, "482", messages[0].Command)
	assert.Equal(t, []string{"alice", "#chat",
		"You cannot remove another operator"}, messages[0].Params)
}

func TestSetModeUnknown(t *testing.T) {
	s := newTestServer()
	alice := newRegisteredClient(t, s, 1, "alice")

	ch := newChannel("#chat")
	ch.addMember(alice)
	ch.grantOperator(alice.ID)

	ch.setMode("+z", "", alice)

	messages := drainMessages(alice)
	require.Len(t, messages, 1)
	assert.Equal(t, "472", messages[0].Command)
	assert.Equal(t, []string{"alice", "+z",
		"is unknown mode char for #chat"}, messages[0].Params)
}
