package main

import (
	"strconv"
	"strings"
)

// Channel holds everything to do with a channel. Channels are created
// on first JOIN and linger with modes intact when they empty.
type Channel struct {
	// Name, including the leading # or &.
	Name string

	// Members in the channel, by client ID.
	Members map[uint64]*Client

	// MemberNicks and MemberUsers cache the nickname and username of
	// each member as of the moment they joined. Message prefixes on
	// channel traffic come from here rather than the client registry.
	MemberNicks map[uint64]string
	MemberUsers map[uint64]string

	// Operators in the channel. Always a subset of Members.
	Operators map[uint64]struct{}

	// Nicknames invited with INVITE. Entries survive the join and go
	// away when the member leaves.
	Invited map[string]struct{}

	// Current topic. May be blank.
	Topic string

	// Channel key (+k). Blank means no key.
	Key string

	// Member limit (+l). Zero means no limit.
	UserLimit int

	InviteOnly      bool
	TopicRestricted bool

	// The first operator: the creator, or whoever got promoted when the
	// previous first operator left.
	firstOp    uint64
	hasFirstOp bool
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:        name,
		Members:     make(map[uint64]*Client),
		MemberNicks: make(map[uint64]string),
		MemberUsers: make(map[uint64]string),
		Operators:   make(map[uint64]struct{}),
		Invited:     make(map[string]struct{}),
	}
}

// addMember adds a client to the channel and snapshots its nick and
// username for prefix construction. Idempotent on membership; a repeat
// join refreshes the cache.
func (ch *Channel) addMember(c *Client) {
	ch.Members[c.ID] = c
	ch.MemberNicks[c.ID] = c.Nickname
	ch.MemberUsers[c.ID] = c.Username
}

// removeMember removes a member and everything attached to it. If the
// member was the first operator and members remain, one of them (map
// iteration order) is promoted to operator and becomes the new first
// operator.
func (ch *Channel) removeMember(id uint64) {
	nick, wasMember := ch.MemberNicks[id]
	if !wasMember {
		return
	}

	delete(ch.Members, id)
	delete(ch.Operators, id)
	delete(ch.MemberNicks, id)
	delete(ch.MemberUsers, id)
	delete(ch.Invited, nick)

	if ch.hasFirstOp && ch.firstOp == id {
		ch.hasFirstOp = false
		for memberID := range ch.Members {
			ch.firstOp = memberID
			ch.hasFirstOp = true
			ch.Operators[memberID] = struct{}{}
			log.Infof("Channel %s: %s promoted to operator",
				ch.Name, ch.MemberNicks[memberID])
			break
		}
	}
}

func (ch *Channel) isMember(id uint64) bool {
	_, ok := ch.Members[id]
	return ok
}

func (ch *Channel) isOperator(id uint64) bool {
	_, ok := ch.Operators[id]
	return ok
}

func (ch *Channel) isInvited(nick string) bool {
	_, ok := ch.Invited[nick]
	return ok
}

func (ch *Channel) invite(nick string) {
	ch.Invited[nick] = struct{}{}
}

// grantOperator gives a member operator status. The first grant on a
// channel records the first operator.
func (ch *Channel) grantOperator(id uint64) {
	ch.Operators[id] = struct{}{}
	if !ch.hasFirstOp {
		ch.firstOp = id
		ch.hasFirstOp = true
	}
}

// memberIDByNick finds a member by cached nickname.
func (ch *Channel) memberIDByNick(nick string) (uint64, bool) {
	for id, n := range ch.MemberNicks {
		if n == nick {
			return id, true
		}
	}
	return 0, false
}

// memberPrefix builds the nick!user@host prefix for a member from the
// cached values.
func (ch *Channel) memberPrefix(id uint64) string {
	return ch.MemberNicks[id] + "!" + ch.MemberUsers[id] + "@" + clientHost
}

// namesList is the 353 payload: all member nicks, operators marked
// with @, in iteration order.
func (ch *Channel) namesList() string {
	var names []string
	for id := range ch.Members {
		nick := ch.MemberNicks[id]
		if ch.isOperator(id) {
			nick = "@" + nick
		}
		names = append(names, nick)
	}
	return strings.Join(names, " ")
}

// broadcast queues a message to every member.
//
// Note: Only the server goroutine should call this (due to channel use).
func (ch *Channel) broadcast(m Message) {
	for _, member := range ch.Members {
		member.maybeQueueMessage(m)
	}
}

// relay queues a message from one member to every other member, with
// the sender's cached prefix.
//
// Note: Only the server goroutine should call this (due to channel use).
func (ch *Channel) relay(senderID uint64, command, text string) {
	m := Message{
		Prefix:   ch.memberPrefix(senderID),
		Command:  command,
		Params:   []string{ch.Name, text},
		Trailing: true,
	}

	for id, member := range ch.Members {
		if id == senderID {
			continue
		}
		member.maybeQueueMessage(m)
	}
}

// setMode applies one mode change requested by sender, who has already
// been checked for operator status. param is the third MODE argument,
// or blank.
//
// Note: Only the server goroutine should call this (due to channel use).
func (ch *Channel) setMode(modeSpec, param string, sender *Client) {
	switch modeSpec {
	case "+i":
		ch.InviteOnly = true
	case "-i":
		ch.InviteOnly = false

	case "+t":
		ch.TopicRestricted = true
	case "-t":
		ch.TopicRestricted = false

	case "+k":
		if param == "" {
			ch.numericTo(sender, "461", []string{"MODE",
				"Not enough parameters for +k"})
			return
		}
		ch.Key = param
	case "-k":
		ch.Key = ""

	case "+o":
		id, ok := ch.memberIDByNick(param)
		if !ok {
			ch.numericTo(sender, "401", []string{param,
				"No such nick/channel"})
			return
		}
		ch.grantOperator(id)
		ch.broadcast(Message{
			Prefix:  ch.memberPrefix(sender.ID),
			Command: "MODE",
			Params:  []string{ch.Name, "+o", param},
		})

	case "-o":
		id, ok := ch.memberIDByNick(param)
		if !ok {
			ch.numericTo(sender, "401", []string{param,
				"No such nick/channel"})
			return
		}
		// Operators may only demote themselves. Demoting anyone else is
		// refused even when the requester outranks nobody.
		if id != sender.ID {
			ch.numericTo(sender, "482", []string{ch.Name,
				"You cannot remove another operator"})
			return
		}
		delete(ch.Operators, id)
		target := ch.Members[id]
		target.maybeQueueMessage(Message{
			Prefix:  serverName,
			Command: "341",
			Params: []string{ch.MemberNicks[sender.ID],
				ch.MemberNicks[id], ch.Name, "Operator privileges removed"},
			Trailing: true,
		})

	case "+l":
		limit, err := strconv.Atoi(param)
		if param == "" || err != nil || limit <= 0 {
			ch.numericTo(sender, "461", []string{"MODE",
				"Invalid parameter for +l"})
			return
		}
		ch.UserLimit = limit
	case "-l":
		ch.UserLimit = 0

	default:
		ch.numericTo(sender, "472", []string{modeSpec,
			"is unknown mode char for " + ch.Name})
		return
	}

	log.Infof("Channel %s: mode %s by %s", ch.Name, modeSpec,
		ch.MemberNicks[sender.ID])
}

// numericTo sends a numeric reply to a member, with the nick taken from
// the channel's cache.
func (ch *Channel) numericTo(c *Client, numeric string, params []string) {
	c.maybeQueueMessage(Message{
		Prefix:   serverName,
		Command:  numeric,
		Params:   append([]string{ch.MemberNicks[c.ID]}, params...),
		Trailing: true,
	})
}
