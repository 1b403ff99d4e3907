package main

import (
	"strings"
)

const (
	passwordPromptInitial = "Please enter the password using PASS <password>."
	passwordPromptRepeat  = "Please enter the password using PASS <password>"
	passwordAccepted      = "Password accepted. Please enter NICK and USER."
)

// handleLine takes action based on one line from a client. This is the
// registration automaton plus command dispatch.
//
// Note: Only the server goroutine should call this.
func (s *Server) handleLine(c *Client, line string) {
	m, ok := parseLine(line)
	if !ok {
		return
	}

	// PING works in every state.
	if m.Command == "PING" {
		s.pingCommand(c, m)
		return
	}

	// Until the password is accepted, PASS is the only other command we
	// act on. Anything else just gets the prompt again.
	if !c.Authenticated {
		if m.Command == "PASS" {
			s.passCommand(c, m)
			return
		}
		c.maybeQueueMessage(Message{
			Prefix:   serverName,
			Command:  "NOTICE",
			Params:   []string{"*", passwordPromptRepeat},
			Trailing: true,
		})
		return
	}

	if m.Command == "NICK" {
		s.nickCommand(c, m)
	}
	if m.Command == "USER" {
		s.userCommand(c, m)
	}

	// Once both NICK and USER have been seen, the welcome burst goes
	// out exactly once.
	if !c.WelcomeSent && c.HasNick && c.HasUser {
		s.sendWelcome(c)
	}

	if m.Command == "NICK" || m.Command == "USER" {
		return
	}

	if m.Command != "PASS" && !c.registered() {
		// 451 ERR_NOTREGISTERED
		c.maybeQueueMessage(Message{
			Prefix:   serverName,
			Command:  "451",
			Params:   []string{"*", "You have not registered"},
			Trailing: true,
		})
		return
	}

	if !isKnownCommand(m.Command) {
		// 421 ERR_UNKNOWNCOMMAND
		c.maybeQueueMessage(Message{
			Prefix:   serverName,
			Command:  "421",
			Params:   []string{"*", m.Command, "Unknown command"},
			Trailing: true,
		})
		return
	}

	switch m.Command {
	case "JOIN":
		s.joinCommand(c, m)
	case "PART":
		s.partCommand(c, m)
	case "PRIVMSG", "NOTICE":
		s.privmsgCommand(c, m)
	case "KICK":
		s.kickCommand(c, m)
	case "INVITE":
		s.inviteCommand(c, m)
	case "TOPIC":
		s.topicCommand(c, m)
	case "MODE":
		s.modeCommand(c, m)
	case "QUIT":
		s.quitCommand(c, m)
	case "PONG":
		// Not doing anything with this. Just accept it.
	}
}

func (s *Server) passCommand(c *Client, m Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		// 461 ERR_NEEDMOREPARAMS
		c.messageFromServer("461", []string{"PASS", "Not enough parameters."})
		return
	}

	if m.Params[0] != s.Password {
		// 464 ERR_PASSWDMISMATCH. Flushed to the peer before the
		// disconnect because the writer drains the queue first.
		c.messageFromServer("464", []string{"Incorrect password."})
		log.Infof("Client %s: incorrect password", c)
		s.disconnectClient(c)
		return
	}

	c.Authenticated = true
	c.maybeQueueMessage(Message{
		Prefix:   serverName,
		Command:  "NOTICE",
		Params:   []string{"*", passwordAccepted},
		Trailing: true,
	})
	log.Infof("Client %s: authenticated", c)
}

func (s *Server) nickCommand(c *Client, m Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		// 431 ERR_NONICKNAMEGIVEN
		c.messageFromServer("431", []string{"No nickname given"})
		return
	}

	c.Nickname = m.Params[0]
	c.HasNick = true
}

// userCommand handles USER <username> <mode> <unused> <realname>. The
// realname may span tokens; we accept it and drop it. USER after
// registration silently overwrites the username.
func (s *Server) userCommand(c *Client, m Message) {
	if len(m.Params) < 4 {
		// 461 ERR_NEEDMOREPARAMS
		c.messageFromServer("461", []string{"USER", "Not enough parameters"})
		return
	}

	if m.Params[0] == "" {
		c.messageFromServer("461", []string{"USER", "Invalid username"})
		return
	}

	c.Username = m.Params[0]
	c.HasUser = true
}

func (s *Server) sendWelcome(c *Client) {
	// 001 RPL_WELCOME
	c.messageFromServer("001", []string{"Welcome to the IRC server!"})
	// 375 RPL_MOTDSTART
	c.messageFromServer("375", []string{"- IRC Message of the Day -"})
	// 376 RPL_ENDOFMOTD
	c.messageFromServer("376", []string{"End of /MOTD command."})

	c.WelcomeSent = true
	log.Infof("Client %s: registered as %s!%s", c, c.Nickname, c.Username)
}

func (s *Server) pingCommand(c *Client, m Message) {
	token := strings.Join(m.Params, " ")
	if token == "" {
		token = serverName
	}

	// No server prefix on the PONG.
	c.maybeQueueMessage(Message{
		Command:  "PONG",
		Params:   []string{token},
		Trailing: true,
	})
}

func (s *Server) joinCommand(c *Client, m Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		c.messageFromServer("461", []string{"JOIN", "Not enough parameters"})
		return
	}

	name := m.Params[0]
	if !isChannelName(name) {
		name = "#" + name
	}

	key := ""
	if len(m.Params) > 1 {
		key = m.Params[1]
	}

	ch, exists := s.Channels[name]
	if exists {
		if ch.InviteOnly && !ch.isInvited(c.Nickname) {
			// 473 ERR_INVITEONLYCHAN
			c.messageFromServer("473", []string{name,
				"Cannot join: Invite-only channel"})
			return
		}
		if ch.UserLimit > 0 && len(ch.Members) >= ch.UserLimit {
			// 471 ERR_CHANNELISFULL
			c.messageFromServer("471", []string{name,
				"Cannot join: Channel is full"})
			return
		}
		if ch.Key != "" && key != ch.Key {
			// 475 ERR_BADCHANNELKEY
			c.messageFromServer("475", []string{name,
				"Cannot join: Incorrect channel key"})
			return
		}
	} else {
		ch = newChannel(name)
		s.Channels[name] = ch
		log.Infof("Channel %s created by %s", name, c.Nickname)
	}

	created := !exists

	ch.addMember(c)
	c.CurrentChannel = name
	if created {
		// The creator is the first operator.
		ch.grantOperator(c.ID)
	}

	// Everyone in the channel hears about the join, the joiner included.
	ch.broadcast(Message{
		Prefix:  c.nickUhost(),
		Command: "JOIN",
		Params:  []string{name},
	})

	if ch.Topic == "" {
		// 331 RPL_NOTOPIC
		c.messageFromServer("331", []string{name, "No topic is set"})
	} else {
		// 332 RPL_TOPIC
		c.messageFromServer("332", []string{name, ch.Topic})
	}

	// 353 RPL_NAMREPLY / 366 RPL_ENDOFNAMES
	c.maybeQueueMessage(Message{
		Prefix:   serverName,
		Command:  "353",
		Params:   []string{c.Nickname, "=", name, ch.namesList()},
		Trailing: true,
	})
	c.messageFromServer("366", []string{name, "End of /NAMES list"})
}

func (s *Server) partCommand(c *Client, m Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		c.messageFromServer("461", []string{"PART", "Not enough parameters"})
		return
	}

	name := m.Params[0]
	ch, exists := s.Channels[name]
	if !isChannelName(name) || !exists {
		// 403 ERR_NOSUCHCHANNEL
		c.messageFromServer("403", []string{name, "No such channel"})
		return
	}

	if !ch.isMember(c.ID) {
		// 442 ERR_NOTONCHANNEL
		c.messageFromServer("442", []string{name,
			"You're not on that channel"})
		return
	}

	params := []string{name}
	trailing := false
	if len(m.Params) > 1 && m.Params[1] != "" {
		params = append(params, m.Params[1])
		trailing = true
	}

	// Broadcast before removal so the departing client sees its own
	// PART.
	ch.broadcast(Message{
		Prefix:   c.nickUhost(),
		Command:  "PART",
		Params:   params,
		Trailing: trailing,
	})

	ch.removeMember(c.ID)
}

// privmsgCommand handles both PRIVMSG and NOTICE. They differ only in
// failure behaviour: NOTICE failures are logged, never answered.
func (s *Server) privmsgCommand(c *Client, m Message) {
	notice := m.Command == "NOTICE"

	target := ""
	if len(m.Params) > 0 {
		target = m.Params[0]
	}
	text := ""
	if len(m.Params) > 1 {
		text = strings.Join(m.Params[1:], " ")
	}

	if target == "" || text == "" {
		if notice {
			log.Debugf("Client %s: NOTICE without target or text", c)
			return
		}
		c.messageFromServer("461", []string{"PRIVMSG",
			"Not enough parameters"})
		return
	}

	if isChannelName(target) {
		ch, exists := s.Channels[target]
		if !exists {
			if notice {
				log.Debugf("Client %s: NOTICE to unknown channel %s", c,
					target)
				return
			}
			c.messageFromServer("403", []string{target, "No such channel"})
			return
		}

		if !ch.isMember(c.ID) {
			if notice {
				log.Debugf("Client %s: NOTICE to channel %s it is not on",
					c, target)
				return
			}
			// 404 ERR_CANNOTSENDTOCHAN
			c.messageFromServer("404", []string{target,
				"Cannot send to channel"})
			return
		}

		ch.relay(c.ID, m.Command, text)
		return
	}

	targetClient := s.clientByNick(target)
	if targetClient == nil {
		if notice {
			log.Debugf("Client %s: NOTICE to unknown nick %s", c, target)
			return
		}
		// 401 ERR_NOSUCHNICK
		c.messageFromServer("401", []string{target, "No such nick/channel"})
		return
	}

	targetClient.maybeQueueMessage(Message{
		Prefix:   c.nickUhost(),
		Command:  m.Command,
		Params:   []string{target, text},
		Trailing: true,
	})
}

func (s *Server) kickCommand(c *Client, m Message) {
	if len(m.Params) < 2 || m.Params[0] == "" || m.Params[1] == "" {
		c.messageFromServer("461", []string{"KICK", "Not enough parameters"})
		return
	}

	name := m.Params[0]
	targetNick := m.Params[1]

	ch, exists := s.Channels[name]
	if !isChannelName(name) || !exists {
		c.messageFromServer("403", []string{name, "No such channel"})
		return
	}

	if !ch.isOperator(c.ID) {
		// 482 ERR_CHANOPRIVSNEEDED
		c.messageFromServer("482", []string{name,
			"You're not channel operator"})
		return
	}

	target := s.clientByNick(targetNick)
	if target == nil || !ch.isMember(target.ID) {
		// 441 ERR_USERNOTINCHANNEL
		c.messageFromServer("441", []string{targetNick, name,
			"They aren't on that channel"})
		return
	}

	ch.broadcast(Message{
		Prefix:   c.nickUhost(),
		Command:  "KICK",
		Params:   []string{name, targetNick, "Kicked by operator"},
		Trailing: true,
	})

	ch.removeMember(target.ID)
	log.Infof("Channel %s: %s kicked %s", name, c.Nickname, targetNick)
}

func (s *Server) inviteCommand(c *Client, m Message) {
	if len(m.Params) < 2 || m.Params[0] == "" || m.Params[1] == "" {
		c.messageFromServer("461", []string{"INVITE",
			"Not enough parameters"})
		return
	}

	targetNick := m.Params[0]
	name := m.Params[1]

	ch, exists := s.Channels[name]
	if !isChannelName(name) || !exists {
		c.messageFromServer("403", []string{name, "No such channel"})
		return
	}

	if !ch.isOperator(c.ID) {
		c.messageFromServer("482", []string{name,
			"You're not channel operator"})
		return
	}

	target := s.clientByNick(targetNick)
	if target == nil {
		c.messageFromServer("401", []string{targetNick,
			"No such nick/channel"})
		return
	}

	ch.invite(targetNick)

	target.maybeQueueMessage(Message{
		Prefix:  c.nickUhost(),
		Command: "INVITE",
		Params:  []string{targetNick, name},
	})

	// 341 RPL_INVITING
	c.messageFromServer("341", []string{targetNick, name,
		"Invitation sent"})
	log.Infof("Channel %s: %s invited %s", name, c.Nickname, targetNick)
}

func (s *Server) topicCommand(c *Client, m Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		c.messageFromServer("461", []string{"TOPIC",
			"Not enough parameters"})
		return
	}

	name := m.Params[0]
	ch, exists := s.Channels[name]
	if !isChannelName(name) || !exists {
		c.messageFromServer("403", []string{name, "No such channel"})
		return
	}

	// Query.
	if len(m.Params) < 2 {
		if ch.Topic == "" {
			c.messageFromServer("331", []string{name, "No topic is set"})
		} else {
			c.messageFromServer("332", []string{name, ch.Topic})
		}
		return
	}

	if ch.TopicRestricted && !ch.isOperator(c.ID) {
		c.messageFromServer("482", []string{name,
			"You're not channel operator"})
		return
	}

	ch.Topic = strings.Join(m.Params[1:], " ")

	ch.broadcast(Message{
		Prefix:   c.nickUhost(),
		Command:  "TOPIC",
		Params:   []string{name, ch.Topic},
		Trailing: true,
	})
}

func (s *Server) modeCommand(c *Client, m Message) {
	if len(m.Params) < 2 || m.Params[0] == "" || m.Params[1] == "" {
		c.messageFromServer("461", []string{"MODE", "Not enough parameters"})
		return
	}

	name := m.Params[0]
	ch, exists := s.Channels[name]
	if !isChannelName(name) || !exists {
		c.messageFromServer("403", []string{name, "No such channel"})
		return
	}

	if !ch.isOperator(c.ID) {
		c.messageFromServer("482", []string{name,
			"You're not channel operator"})
		return
	}

	param := ""
	if len(m.Params) > 2 {
		param = m.Params[2]
	}

	ch.setMode(m.Params[1], param, c)
}

func (s *Server) quitCommand(c *Client, m Message) {
	params := []string{}
	trailing := false
	if msg := strings.Join(m.Params, " "); msg != "" {
		params = append(params, msg)
		trailing = true
	}

	quitMessage := Message{
		Prefix:   c.nickUhost(),
		Command:  "QUIT",
		Params:   params,
		Trailing: trailing,
	}

	for _, ch := range s.Channels {
		if !ch.isMember(c.ID) {
			continue
		}
		ch.broadcast(quitMessage)
		ch.removeMember(c.ID)
	}

	s.disconnectClient(c)
}
