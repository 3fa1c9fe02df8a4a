package recall

import "errors"

var (
	// ErrEmbed is returned when generating an embedding for a turn fails.
	ErrEmbed = errors.New("embed failed")

	// ErrIndex is returned when writing an embedded turn to the vector
	// store fails.
	ErrIndex = errors.New("index failed")
)
