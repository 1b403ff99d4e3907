package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		argv     []string
		wantErr  bool
		port     int
		password string
	}{
		{[]string{"ircserv"}, true, 0, ""},
		{[]string{"ircserv", "6667"}, true, 0, ""},
		{[]string{"ircserv", "6667", "secret", "extra"}, true, 0, ""},
		{[]string{"ircserv", "abc", "secret"}, true, 0, ""},
		{[]string{"ircserv", "", "secret"}, true, 0, ""},
		{[]string{"ircserv", "1023", "secret"}, true, 0, ""},
		{[]string{"ircserv", "-6667", "secret"}, true, 0, ""},
		{[]string{"ircserv", "2147483648", "secret"}, true, 0, ""},
		{[]string{"ircserv", "1024", "secret"}, false, 1024, "secret"},
		{[]string{"ircserv", "6667", "hunter2"}, false, 6667, "hunter2"},
		{[]string{"ircserv", "2147483647", "secret"}, false, 2147483647,
			"secret"},
	}

	for _, test := range tests {
		args, err := parseArgs(test.argv)
		if test.wantErr {
			assert.Error(t, err, "%v", test.argv)
			continue
		}
		require.NoError(t, err, "%v", test.argv)
		assert.Equal(t, test.port, args.Port)
		assert.Equal(t, test.password, args.Password)
	}
}
