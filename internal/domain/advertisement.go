package domain

// Advertisement is a pre-roll candidate. Any field may be empty.
type Advertisement struct {
	AdID     string `json:"id,omitempty" dynamodbav:"ad_id"`
	Video    string `json:"video,omitempty" dynamodbav:"video"`
	VideoKey string `json:"-" dynamodbav:"video_key"` // S3 object key, resolved to Video on read
	Link     string `json:"link,omitempty" dynamodbav:"link"`
	Text     string `json:"text,omitempty" dynamodbav:"text"`
	Enable   bool   `json:"-" dynamodbav:"enable"`
}

// AdSession is the render-facing view of a pre-roll playback.
type AdSession struct {
	Advertisement       *Advertisement `json:"advertisement"`
	ElapsedSeconds      int            `json:"elapsed_seconds"`
	MinimumWatchSeconds int            `json:"minimum_watch_seconds"`
	SkipUnlocked        bool           `json:"skip_unlocked"`
	IsActive            bool           `json:"is_active"`
}
