package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID identifies a single execution attempt. IDs are KSUIDs so they sort by
// creation time.
type ID string

func NewID() (ID, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return ID(id.String()), nil
}

func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

func ParseID(s string) (ID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(id.String()), nil
}

func (c ID) String() string {
	return string(c)
}

func (c ID) IsZero() bool {
	return c == ""
}
