package model

import "github.com/oklog/ulid/v2"

// NewRunID generates a ULID identifying one process lifetime of the pool.
// Job ids restart at 1 on every boot, so persisted records carry the run id
// to tell lifetimes apart.
func NewRunID() string {
	return ulid.Make().String()
}
