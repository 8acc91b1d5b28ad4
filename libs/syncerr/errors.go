// Package syncerr holds the error taxonomy shared by the company and employee services.
package syncerr

import "errors"

var (
	// ErrNotFound means a direct lookup of an aggregate found nothing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means a company with the same name is already registered.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRemoteUnavailable means an enrichment lookup against the other service failed.
	// It is absorbed by readers and never fails the primary operation.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrEventApplyNoTarget means a consumed event names an aggregate that does not exist.
	// Such events are logged and dropped.
	ErrEventApplyNoTarget = errors.New("event target does not exist")
	// ErrInvalidEvent marks a payload that cannot be decoded or lacks required ids.
	ErrInvalidEvent = errors.New("invalid event")
)
