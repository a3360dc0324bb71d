package model

import "time"

// User carries only the fields this engine owns: identity, VIP state, and the
// contact handle the notifier needs. Profile, auth and uploads live elsewhere;
// user rows are provisioned by the account service upstream.
type User struct {
	ID           string // UUID
	Username     string
	VIP          VIPState
	RegisteredAt time.Time
}
