package domain

import "errors"

var (
	ErrLeadNotFound    = errors.New("lead not found")
	ErrNotLeadOwner    = errors.New("lead belongs to another user")
	ErrInvalidTitle    = errors.New("invalid lead title")
	ErrInvalidPriority = errors.New("invalid lead priority")
)
