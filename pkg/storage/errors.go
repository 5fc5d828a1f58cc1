package storage

import "errors"

// ErrAccountNotFound is returned when no account exists for a user ID.
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountExists is returned when creating an account for a user ID that already has one.
var ErrAccountExists = errors.New("account already exists")

// ErrTransferRejected is returned when the store cancels an agency transfer batch as a whole.
var ErrTransferRejected = errors.New("transfer rejected")
