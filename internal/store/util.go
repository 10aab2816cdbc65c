// Package store is the durable mirror of upstream events, downstream
// events, their mapping, sync sessions, and per-user sync
// configuration (spec §3, §4.6).
package store

import "strings"

// isDuplicateKeyError reports whether err is a PostgreSQL unique
// constraint violation (error code 23505).
func isDuplicateKeyError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}
