package model

import "errors"

var (
	// ErrInvalidConfig is returned when the client is constructed without a usable backend URL or token.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnauthorized is returned when the backend rejects the access token (401/403).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the backend or a repository has no such resource.
	ErrNotFound = errors.New("not found")

	// ErrEmptyResponse is returned when a completion stream ends without any message.
	ErrEmptyResponse = errors.New("empty response from backend")

	// ErrNoConversation is returned by operations that need an existing conversation.
	ErrNoConversation = errors.New("conversation is not started")

	// ErrNodeNotFound is returned when a node id is not part of the conversation tree.
	ErrNodeNotFound = errors.New("node not found in conversation")

	// ErrAtRoot is returned when there is no earlier exchange to move to.
	ErrAtRoot = errors.New("already at the first exchange")

	// ErrUnsupportedFormat is returned for snapshot files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
)
