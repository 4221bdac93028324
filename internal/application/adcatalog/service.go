package adcatalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playback-gate/internal/domain"
)

// AdRepository lists pre-roll candidates.
type AdRepository interface {
	ListEnabled(ctx context.Context) ([]domain.Advertisement, error)
}

// MediaSigner turns a stored object key into a playable URL.
type MediaSigner interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

type Service interface {
	Candidates(ctx context.Context) ([]domain.Advertisement, error)
}

type service struct {
	ads    AdRepository
	signer MediaSigner
}

// NewService builds the candidate provider. signer may be nil when ads carry
// absolute video URLs only.
func NewService(ads AdRepository, signer MediaSigner) Service {
	return &service{ads: ads, signer: signer}
}

// Candidates returns enabled ads with their media resolved. An ad whose media
// cannot be signed is still offered without video.
func (s *service) Candidates(ctx context.Context) ([]domain.Advertisement, error) {
	ads, err := s.ads.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list advertisements: %w", err)
	}
	out := make([]domain.Advertisement, 0, len(ads))
	for _, ad := range ads {
		if !ad.Enable {
			continue
		}
		if ad.Video == "" && ad.VideoKey != "" && s.signer != nil {
			url, err := s.signer.PresignedURL(ctx, ad.VideoKey)
			if err != nil {
				slog.Warn("failed to sign ad media", "ad_id", ad.AdID, "key", ad.VideoKey, "err", err)
			} else {
				ad.Video = url
			}
		}
		out = append(out, ad)
	}
	return out, nil
}
