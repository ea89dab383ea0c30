package speckle

import (
	"errors"
	"fmt"
)

// TransportError is a failure to obtain a usable HTTP response from a server
type TransportError struct {
	Endpoint   string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("speckle request to %s failed (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("speckle request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GraphQLError is an application-level error reported in a GraphQL response
type GraphQLError struct {
	Endpoint string
	Issues   []GraphQLIssue
}

// Error carries the message of the first reported error
func (e *GraphQLError) Error() string {
	if len(e.Issues) == 0 {
		return "graphql request to " + e.Endpoint + " failed"
	}
	return e.Issues[0].Message
}

// IsTransportError reports whether err was caused by the network or an HTTP status
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsGraphQLError reports whether err was reported by the server's GraphQL layer
func IsGraphQLError(err error) bool {
	var gqlErr *GraphQLError
	return errors.As(err, &gqlErr)
}
