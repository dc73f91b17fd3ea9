package domain

import "errors"

var (
	ErrNotSignedIn     = errors.New("user is not signed in")
	ErrNotInitialized  = errors.New("inbox is not initialized")
	ErrMessageNotFound = errors.New("message not found")
	ErrSessionExpired  = errors.New("session access token has expired")

	// Transport errors wrap the underlying cause.
	ErrTransport = errors.New("transport failure")
	ErrSocket    = errors.New("socket failure")
	ErrParse     = errors.New("malformed server payload")
)
