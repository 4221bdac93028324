// Package access decides whether a viewer may start playback of a content item.
package access

import "github.com/playback-gate/internal/domain"

// Decide evaluates, in order: free content, authentication, subscription.
// A nil viewer is treated as unauthenticated. Verification always comes
// before a billing prompt.
func Decide(req domain.ContentAccessRequirement, viewer *domain.ViewerEntitlement) domain.Decision {
	if !req.IsPaid {
		return domain.DecisionAllow
	}
	if viewer == nil || !viewer.IsAuthenticated {
		return domain.DecisionRedirectToAuth
	}
	if !viewer.IsSubscribed {
		return domain.DecisionRedirectToBilling
	}
	return domain.DecisionAllow
}
