package wire

import (
	"errors"
	"strings"
)

var ErrEmptyEndpoint = errors.New("wire: empty endpoint")

// SplitEndpoint maps an endpoint string onto a network and address for
// net.Dial / net.Listen. The rule is purely syntactic and shared verbatim by
// server and client configuration: a string containing a host/port separator
// selects TCP, anything else is a unix socket path. Paths that themselves
// contain ':' misclassify; known limitation.
func SplitEndpoint(endpoint string) (network, address string, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", "", ErrEmptyEndpoint
	}
	if strings.Contains(endpoint, ":") {
		return "tcp", endpoint, nil
	}
	return "unix", endpoint, nil
}
