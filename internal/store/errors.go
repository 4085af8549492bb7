package store

import "errors"

var (
	// ErrItemNotFound is returned when a lookup matches no row.
	ErrItemNotFound = errors.New("item not found")

	// ErrMultipleItemsFound is returned when a supposedly-unique lookup
	// matches more than one row. This is a data-integrity violation and
	// is never resolved by picking one of the matches.
	ErrMultipleItemsFound = errors.New("multiple items found")

	// ErrItemAlreadyExisting is returned when inserting a document whose
	// URI is already taken within its kind.
	ErrItemAlreadyExisting = errors.New("item already existing")

	// ErrInvalidItem is returned when the database rejects a row because
	// of a constraint violation.
	ErrInvalidItem = errors.New("invalid item")
)
