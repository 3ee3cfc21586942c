package suggest

import "context"

// titleSource finds document titles starting with a prefix.
type titleSource interface {
	PrefixSearch(ctx context.Context, prefix string, limit int) ([]string, error)
}

// historySource lists a user's recent query texts, newest first.
type historySource interface {
	RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
}
