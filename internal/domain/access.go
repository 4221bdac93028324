package domain

// Decision is the outcome of the access evaluator.
type Decision string

const (
	DecisionAllow             Decision = "ALLOW"
	DecisionRedirectToAuth    Decision = "REDIRECT_TO_AUTH"
	DecisionRedirectToBilling Decision = "REDIRECT_TO_BILLING"
)

// ViewerEntitlement is recomputed on every content access attempt.
type ViewerEntitlement struct {
	IsAuthenticated bool `json:"is_authenticated"`
	IsSubscribed    bool `json:"is_subscribed"`
	IsVerified      bool `json:"is_verified"`
}

// ContentAccessRequirement is the access attribute of an anime or episode.
type ContentAccessRequirement struct {
	IsPaid bool `json:"is_paid"`
}

// Content is the catalog record the gate reads. Only the access attribute matters here.
type Content struct {
	ContentID string `json:"id" dynamodbav:"content_id"`
	Kind      string `json:"kind" dynamodbav:"kind"` // "anime" | "episode"
	Title     string `json:"title" dynamodbav:"title"`
	IsPaid    bool   `json:"is_paid" dynamodbav:"is_paid"`
}

func (c *Content) Requirement() ContentAccessRequirement {
	return ContentAccessRequirement{IsPaid: c.IsPaid}
}
