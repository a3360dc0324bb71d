package adapter

import "context"

// Notifier delivers a user-facing message. Transport is outside this core;
// implementations must be safe to call best-effort after a commit.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}
