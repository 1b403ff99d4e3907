package main

import (
	"fmt"
	"net"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

var log = logrus.NewEntry(logrus.StandardLogger())

// Server holds the state for a server.
// I put everything global to a server in an instance of struct rather
// than have global variables.
type Server struct {
	// Address to listen on, host:port.
	Addr string

	// Connection password clients must supply with PASS.
	Password string

	// Client id to Client. Every live connection is here, registered or
	// not.
	Clients map[uint64]*Client

	// Channel name to Channel.
	Channels map[string]*Channel

	// When we close this channel, this indicates that we're shutting
	// down. Other goroutines can check if this channel is closed.
	ShutdownChan chan struct{}

	// Tell the server something on this channel.
	ToServerChan chan Event

	// TCP listener.
	Listener net.Listener

	// WaitGroup to ensure all goroutines clean up before we end.
	WG conc.WaitGroup
}

// Event holds a message containing something to tell the server.
type Event struct {
	Type EventType

	ClientID uint64

	Client *Client

	Line string
}

// EventType is a type of event we can tell the server about.
type EventType int

const (
	// NullEvent is a default event. This means the event was not
	// populated.
	NullEvent EventType = iota

	// NewClientEvent means a new client connected.
	NewClientEvent

	// DeadClientEvent means client died for some reason. Clean it up.
	DeadClientEvent

	// LineFromClientEvent means a client sent a complete line.
	LineFromClientEvent
)

func main() {
	logrus.SetFormatter(&nested.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        true,
	})

	args, err := getArgs()
	if err != nil {
		log.Fatal(err)
	}

	server := newServer(fmt.Sprintf(":%d", args.Port), args.Password)

	if err := server.listen(); err != nil {
		log.Fatal(err)
	}

	if err := server.start(); err != nil {
		log.Fatal(err)
	}

	log.Info("Server shutdown cleanly.")
	os.Exit(0)
}

func newServer(addr, password string) *Server {
	return &Server{
		Addr:     addr,
		Password: password,
		Clients:  make(map[uint64]*Client),
		Channels: make(map[string]*Channel),

		// shutdown() closes this channel.
		ShutdownChan: make(chan struct{}),

		// We never manually close this channel.
		ToServerChan: make(chan Event),
	}
}

// listen opens the TCP port.
func (s *Server) listen() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("unable to listen: %s", err)
	}
	s.Listener = ln
	log.Infof("Listening on %s", ln.Addr())
	return nil
}

// start runs the server.
//
// We start goroutines and then receive messages on our channels until
// shutdown.
func (s *Server) start() error {
	// acceptConnections accepts connections on the TCP listener.
	s.WG.Go(s.acceptConnections)

	s.eventLoop()

	// The event loop is done, so nothing touches the registries
	// concurrently any more. Tear down whatever clients remain; their
	// writers flush and close the connections.
	for _, client := range s.Clients {
		s.disconnectClient(client)
	}

	s.WG.Wait()

	return nil
}

// eventLoop processes events on the server's channel.
//
// It continues until the shutdown channel closes, indicating shutdown.
// All registry state is owned here; handlers run to completion one at
// a time.
func (s *Server) eventLoop() {
	for {
		select {
		case evt := <-s.ToServerChan:
			switch evt.Type {
			case NewClientEvent:
				log.Infof("New client connection: %s", evt.Client)
				s.Clients[evt.Client.ID] = evt.Client
				evt.Client.maybeQueueMessage(Message{
					Prefix:   serverName,
					Command:  "NOTICE",
					Params:   []string{"*", passwordPromptInitial},
					Trailing: true,
				})

			case DeadClientEvent:
				// The client may already be gone (e.g. it QUIT and the
				// reader then noticed the closed socket).
				if client, exists := s.Clients[evt.ClientID]; exists {
					log.Infof("Client %s died.", client)
					s.disconnectClient(client)
				}

			case LineFromClientEvent:
				if client, exists := s.Clients[evt.ClientID]; exists {
					log.Debugf("Client %s: Read: %s", client, evt.Line)
					s.handleLine(client, evt.Line)
				}

			default:
				log.Fatalf("Unexpected event: %d", evt.Type)
			}

		case <-s.ShutdownChan:
			return
		}
	}
}

// shutdown starts server shutdown. Safe to call from any goroutine,
// once.
func (s *Server) shutdown() {
	log.Info("Server shutdown initiated.")

	// Closing ShutdownChan indicates to other goroutines that we're
	// shutting down.
	close(s.ShutdownChan)

	if err := s.Listener.Close(); err != nil {
		log.Debugf("Problem closing TCP listener: %s", err)
	}
}

// disconnectClient removes a client from everything it is part of and
// closes its send queue. The writer goroutine drains what is queued and
// then closes the TCP connection, so anything queued before this call
// still reaches the peer.
//
// Note: Only the server goroutine should call this.
func (s *Server) disconnectClient(c *Client) {
	if _, exists := s.Clients[c.ID]; !exists {
		return
	}

	for _, ch := range s.Channels {
		ch.removeMember(c.ID)
	}

	delete(s.Clients, c.ID)
	close(c.WriteChan)

	log.Infof("Client %s disconnected.", c)
}

// clientByNick finds a connected client by nickname. Nicknames are not
// unique; the first match in iteration order wins.
func (s *Server) clientByNick(nick string) *Client {
	for _, client := range s.Clients {
		if client.Nickname == nick {
			return client
		}
	}
	return nil
}

// acceptConnections accepts TCP connections and tells the main server
// loop through a channel. It sets up separate goroutines for reading
// and writing to and from the client.
func (s *Server) acceptConnections() {
	id := uint64(0)

	for {
		if s.isShuttingDown() {
			break
		}

		conn, err := s.Listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				break
			}
			log.Warnf("Failed to accept connection: %s", err)
			continue
		}

		client := NewClient(s, id, conn)
		id++

		// ToServerChan is synchronous. We want to make sure server
		// knows about the client before it starts hearing anything from
		// its other channels about the client.
		s.newEvent(Event{Type: NewClientEvent, Client: client})

		s.WG.Go(client.readLoop)
		s.WG.Go(client.writeLoop)
	}

	log.Debug("Connection accepter shutting down.")
}

// Return true if the server is shutting down.
func (s *Server) isShuttingDown() bool {
	// No messages get sent to this channel, so if we receive a message
	// on it, then we know the channel was closed.
	select {
	case <-s.ShutdownChan:
		return true
	default:
		return false
	}
}

// newEvent tells the server something happened.
//
// Any goroutine can call this function.
//
// It will not block on shutdown as we select on the shutdown channel
// which we close when shutting down the server.
func (s *Server) newEvent(evt Event) {
	select {
	case s.ToServerChan <- evt:
	case <-s.ShutdownChan:
	}
}
