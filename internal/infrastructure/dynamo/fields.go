package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldEnable           = "enable"
	fieldVerified         = "verified"
	fieldAttempts         = "attempts"
	fieldUpdatedAt        = "updated_at"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
)
