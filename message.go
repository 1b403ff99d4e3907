package main

import (
	"strings"
)

// Message is one IRC protocol message. Inbound messages never carry a
// prefix (we don't accept them from clients); outbound messages from the
// server or relayed on behalf of a client do.
type Message struct {
	Prefix  string
	Command string
	Params  []string

	// Trailing marks the final parameter as a trailing argument. The
	// parser sets it when the argument was introduced with ":", and the
	// encoder always writes the final parameter with ":" when set. This
	// keeps the trailing boundary stable across a parse/encode round
	// trip.
	Trailing bool
}

// parseLine turns one line (terminator already stripped) into a Message.
//
// The verb is the first whitespace-separated token, upper-cased, with
// any leading "/" or "\" characters removed. Remaining tokens are
// arguments, except that a token beginning with ":" starts the trailing
// argument, which runs to the end of the line and may contain spaces.
//
// Blank lines and lines whose verb is empty after stripping are not
// messages; ok is false for those.
func parseLine(line string) (Message, bool) {
	tokens := splitTokens(line)
	if len(tokens) == 0 {
		return Message{}, false
	}

	verb := strings.TrimLeft(tokens[0], "/\\")
	if verb == "" {
		return Message{}, false
	}
	verb = strings.ToUpper(verb)

	m := Message{Command: verb}

	for i, tok := range tokens[1:] {
		if strings.HasPrefix(tok, ":") {
			// Everything from this token on, with the ":" dropped.
			rest := strings.Join(tokens[1+i:], " ")
			m.Params = append(m.Params, rest[1:])
			m.Trailing = true
			break
		}
		m.Params = append(m.Params, tok)
	}

	return m, true
}

// splitTokens splits on runs of spaces and tabs, but keeps the trailing
// argument (":" onward) as raw text so inner spaces survive.
func splitTokens(line string) []string {
	var tokens []string

	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}

		if line[i] == ':' && len(tokens) > 0 {
			tokens = append(tokens, line[i:])
			break
		}

		start := i
		for i < len(line) && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		tokens = append(tokens, line[start:i])
	}

	return tokens
}

// Encode serializes the message as a wire frame terminated with CRLF.
func (m Message) Encode() string {
	var sb strings.Builder

	if m.Prefix != "" {
		sb.WriteByte(':')
		sb.WriteString(m.Prefix)
		sb.WriteByte(' ')
	}

	sb.WriteString(m.Command)

	for i, p := range m.Params {
		sb.WriteByte(' ')
		if i == len(m.Params)-1 && m.needsTrailing(p) {
			sb.WriteByte(':')
		}
		sb.WriteString(p)
	}

	sb.WriteString("\r\n")
	return sb.String()
}

func (m Message) needsTrailing(last string) bool {
	return m.Trailing || last == "" || strings.ContainsAny(last, " ") ||
		strings.HasPrefix(last, ":")
}
