package domain

// VerificationCode stores the hash of an e-mailed one-time passcode.
// PK: email, SK: type ("otp").
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationCode struct {
	Email     string `json:"email" dynamodbav:"email"`
	Type      string `json:"type" dynamodbav:"type"`
	CodeHash  string `json:"-" dynamodbav:"code_hash"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}

const VerificationTypeOTP = "otp"

// CodeLength is the number of digits in a passcode.
const CodeLength = 6

// VerificationResult is what the verification backend returns for an accepted code.
type VerificationResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	NextRoute    string `json:"next_route,omitempty"`
}
