package main

// serverName is the prefix on all server-originated messages.
const serverName = "irc.localhost"

// clientHost is the host part of every client prefix. We don't do
// reverse DNS; everyone is local.
const clientHost = "localhost"

func isNumericCommand(command string) bool {
	if command == "" {
		return false
	}
	for _, c := range command {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isChannelName reports whether the target names a channel rather than
// a nickname.
func isChannelName(s string) bool {
	return len(s) > 0 && (s[0] == '#' || s[0] == '&')
}

var knownCommands = map[string]struct{}{
	"NICK":    {},
	"USER":    {},
	"JOIN":    {},
	"PART":    {},
	"PRIVMSG": {},
	"NOTICE":  {},
	"KICK":    {},
	"INVITE":  {},
	"TOPIC":   {},
	"MODE":    {},
	"PING":    {},
	"PONG":    {},
	"QUIT":    {},
}

func isKnownCommand(command string) bool {
	_, ok := knownCommands[command]
	return ok
}
