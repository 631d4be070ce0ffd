package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrPostNotFound indicates the requested post does not exist
	ErrPostNotFound = errors.New("post not found")

	// ErrCommentNotFound indicates the requested comment does not exist
	ErrCommentNotFound = errors.New("comment not found")

	// ErrProfileNotFound indicates the requested profile does not exist
	ErrProfileNotFound = errors.New("profile not found")

	// ErrBackendUnavailable indicates the hosted backend is unreachable
	ErrBackendUnavailable = errors.New("backend is unreachable")

	// ErrAuthFailed indicates the supplied credentials were rejected
	ErrAuthFailed = errors.New("invalid name or password")

	// ErrLikePending indicates a like mutation for the post is still in
	// flight; the toggle must be retried after it settles
	ErrLikePending = errors.New("like toggle already pending for post")
)
