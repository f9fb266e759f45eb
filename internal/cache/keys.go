package cache

// Key inventory. The sorted sets hold the JSON-serialized confession as the
// member and createdAt (ms) as the score.
const (
	// PublicSetKey is the sorted set of approved, publicly visible confessions.
	PublicSetKey = "confessions"
	// PendingSetKey is the sorted set of confessions awaiting moderation.
	PendingSetKey = "confessions:pending"
	// NextIDKey is the atomic counter used to mint confession IDs.
	NextIDKey = "confession:next_id"
	// TokensKey is the hash mapping confession ID -> possession token.
	TokensKey = "confession:tokens"
	// SettingsKey holds the JSON-serialized site settings.
	SettingsKey = "site:settings"
	// VisitorsKey is the hash of hashed visitor IPs -> first-seen timestamp.
	VisitorsKey = "site:visitors"
)
