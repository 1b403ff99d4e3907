package main

import (
	"fmt"
	"net"
)

// sendQueueSize is how many messages we buffer for a client before
// giving up on it.
const sendQueueSize = 512

// Client holds state about a single client connection. One exists from
// accept until teardown; registration state lives in the flags below.
type Client struct {
	// Conn holds the TCP connection to the client.
	Conn Conn

	// WriteChan is the channel to send to to write to the client. The
	// writer goroutine drains it and owns closing the TCP connection.
	WriteChan chan Message

	// A unique id.
	ID uint64

	// Server references the main server the client is connected to.
	// It's helpful to have to avoid passing server all over the place.
	Server *Server

	// Nickname as last set with NICK. Not unique across clients.
	Nickname string

	// Username as last set with USER.
	Username string

	// Registration progress.
	Authenticated bool
	HasNick       bool
	HasUser       bool
	WelcomeSent   bool

	// Name of the channel most recently joined. Informational only;
	// membership lives in the channels themselves.
	CurrentChannel string

	// True once we were unable to queue a message to the client. We
	// stop trying to send to it after that.
	SendQueueExceeded bool
}

// NewClient creates a Client.
func NewClient(s *Server, id uint64, conn net.Conn) *Client {
	return &Client{
		Conn:      NewConn(conn),
		WriteChan: make(chan Message, sendQueueSize),
		ID:        id,
		Server:    s,
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%d %s", c.ID, c.Conn.RemoteAddr())
}

// registered reports whether the client passed the full handshake:
// password accepted and both NICK and USER seen.
func (c *Client) registered() bool {
	return c.Authenticated && c.HasNick && c.HasUser
}

// nickUhost is the prefix we use when relaying a message from this
// client, built from the registry record.
func (c *Client) nickUhost() string {
	return fmt.Sprintf("%s!%s@%s", c.Nickname, c.Username, clientHost)
}

// readLoop endlessly reads lines from the client's TCP connection and
// passes them to the server goroutine through the server's channel.
func (c *Client) readLoop() {
	for {
		if c.Server.isShuttingDown() {
			break
		}

		line, err := c.Conn.ReadLine()
		if err != nil {
			log.Debugf("Client %s: %s", c, err)
			c.Server.newEvent(Event{Type: DeadClientEvent, ClientID: c.ID})
			break
		}

		c.Server.newEvent(Event{
			Type:     LineFromClientEvent,
			ClientID: c.ID,
			Line:     line,
		})
	}

	log.Debugf("Client %s: Reader shutting down.", c)
}

// writeLoop endlessly reads from the client's channel, encodes each
// message, and writes it to the client's TCP connection.
//
// The writer owns closing the connection: when WriteChan closes it has
// drained everything queued before teardown, so replies such as a 464
// reach the peer before the socket goes away.
func (c *Client) writeLoop() {
	// Loop until the channel closes or we have a write error or
	// shutdown begins.
Loop:
	for {
		select {
		case message, ok := <-c.WriteChan:
			if !ok {
				break Loop
			}
			if err := c.Conn.WriteMessage(message); err != nil {
				log.Debugf("Client %s: %s", c, err)
				c.Server.newEvent(Event{Type: DeadClientEvent, ClientID: c.ID})
				break Loop
			}
		case <-c.Server.ShutdownChan:
			break Loop
		}
	}

	if err := c.Conn.Close(); err != nil {
		log.Debugf("Client %s: Problem closing connection: %s", c, err)
	}

	log.Debugf("Client %s: Writer shutting down.", c)
}

// maybeQueueMessage queues a message to send to the client. If the
// client's queue is full we flag it rather than block the server
// goroutine; sends are best effort.
//
// Note: Only the server goroutine should call this (due to channel use).
func (c *Client) maybeQueueMessage(m Message) {
	if c.SendQueueExceeded {
		return
	}

	select {
	case c.WriteChan <- m:
	default:
		c.SendQueueExceeded = true
		log.Warnf("Client %s: Send queue exceeded.", c)
	}
}

// messageFromServer sends the client an IRC message from the server.
// For numeric replies we prepend the client's nick, or "*" if it does
// not have one yet.
//
// Note: Only the server goroutine should call this (due to channel use).
func (c *Client) messageFromServer(command string, params []string) {
	if isNumericCommand(command) {
		nick := c.Nickname
		if nick == "" {
			nick = "*"
		}
		params = append([]string{nick}, params...)
	}

	c.maybeQueueMessage(Message{
		Prefix:   serverName,
		Command:  command,
		Params:   params,
		Trailing: true,
	})
}
