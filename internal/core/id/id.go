// Package id issues the identifiers of procurement records.
package id

import "github.com/google/uuid"

// ID identifies requisitions, quote cycles, offers, orders and logs.
type ID = uuid.UUID

// New returns a UUIDv7. Its time prefix keeps primary key inserts at the
// right edge of the index.
func New() ID {
	if v, err := uuid.NewV7(); err == nil {
		return v
	}
	return uuid.New()
}

func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is for fixtures.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Short is the tail of v, used for provisional display keys. UUIDv7 values
// made in the same millisecond share their head, not their tail.
func Short(v ID) string {
	s := v.String()
	return s[len(s)-8:]
}
