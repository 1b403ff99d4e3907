package main

import (
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Args are command line arguments.
type Args struct {
	Port     int
	Password string
}

func getArgs() (Args, error) {
	return parseArgs(os.Args)
}

// parseArgs validates argv. We take exactly two arguments: a listen
// port in [1024, 2^31-1] and the connection password.
func parseArgs(argv []string) (Args, error) {
	if len(argv) != 3 {
		return Args{}, errors.Errorf("usage: %s <port> <password>",
			filepath.Base(argv[0]))
	}

	port, err := strconv.ParseInt(argv[1], 10, 32)
	if err != nil {
		return Args{}, errors.Wrapf(err, "invalid port: %s", argv[1])
	}

	if port < 1024 {
		return Args{}, errors.Errorf("port must be in range [1024, %d]",
			math.MaxInt32)
	}

	return Args{Port: int(port), Password: argv[2]}, nil
}
