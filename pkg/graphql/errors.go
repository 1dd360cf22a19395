package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoEndpoint      = errors.New("graphql: no endpoint configured")
	ErrInvalidEndpoint = errors.New("graphql: invalid endpoint")
)

// TransportError is a failure to get a usable GraphQL response at all:
// bad endpoint, network error, non-2xx status or an undecodable body.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graphql %s: endpoint returned %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("graphql %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError carries the errors array of a GraphQL response.
type ServerError struct {
	Messages []string
}

func (e *ServerError) Error() string {
	return "graphql error: " + strings.Join(e.Messages, "; ")
}
