package sink

import "context"

// Platform performs the actual calls against the chat platform. Implementations
// return *RateLimitError when told to back off and wrap non-retryable failures
// with Permanent.
type Platform interface {
	SendMessage(ctx context.Context, channelID, content, replyTo string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}
