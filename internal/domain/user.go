package domain

import "time"

type User struct {
	UserID                string     `json:"id" dynamodbav:"user_id"`
	Email                 string     `json:"email" dynamodbav:"email"`
	Verified              bool       `json:"verified" dynamodbav:"verified"`
	SubscriptionPlanID    string     `json:"subscription_plan_id,omitempty" dynamodbav:"subscription_plan_id"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty" dynamodbav:"subscription_expires_at"`
	Enable                bool       `json:"enable" dynamodbav:"enable"`
	CreatedAt             time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt             time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Subscribed reports whether the user holds a plan that has not expired at now.
func (u *User) Subscribed(now time.Time) bool {
	if u.SubscriptionPlanID == "" || u.SubscriptionExpiresAt == nil {
		return false
	}
	return now.Before(*u.SubscriptionExpiresAt)
}
