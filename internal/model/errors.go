package model

import "errors"

// Domain errors shared between the storage layer, the chat core, and the
// HTTP handlers. Handlers translate them into status codes; the chat core
// uses them to decide whether a frame failure closes the channel.
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrCollegeExists   = errors.New("college already exists")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotGroupAdmin   = errors.New("only group admins can add members")
)
