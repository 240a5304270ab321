package services

import "errors"

// Sentinel errors shared by the service layer and the realtime core.
// Handlers and gateways map these to wire-level rejections; anything else is
// treated as an internal persistence failure.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrChatNotFound     = errors.New("chat not found")
	ErrNotAParticipant  = errors.New("not a participant")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidState     = errors.New("invalid state")
	ErrMessageNotFound  = errors.New("message not found")
	ErrCallNotFound     = errors.New("call not found")
	ErrUserNotFound     = errors.New("user not found")
)
