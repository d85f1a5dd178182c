package service

import "errors"

var (
	// ErrUnknownKind is returned by to_send for a kind other than connection or state.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrUnknownName is returned by to_send for a name without an outbound channel.
	ErrUnknownName = errors.New("unknown name")
	// ErrInboundInMainMode rejects inbound connections in a service that runs a main function.
	ErrInboundInMainMode = errors.New("inbound connections are not allowed in main mode")
	// ErrDuplicateService is returned when a service name is registered twice.
	ErrDuplicateService = errors.New("service already registered")
)
