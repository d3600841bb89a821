package domain

// Reason names why a tracking attempt was not counted.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonRateLimitExceeded Reason = "RateLimitExceeded"
	ReasonDuplicateView     Reason = "DuplicateView"
	ReasonBotDetected       Reason = "BotDetected"
)

// Admission is the verdict of the view admission gates.
type Admission struct {
	Admitted bool
	Reason   Reason
}

// Admit is the admitted verdict.
func Admit() Admission { return Admission{Admitted: true} }

// Reject returns a rejected verdict with the given reason.
func Reject(r Reason) Admission { return Admission{Reason: r} }

// ViewInput carries everything the view pipeline needs from one page load.
type ViewInput struct {
	PostID        string
	SessionToken  string // client-held token; empty mints a new session
	ViewerID      *string
	SourceAddress string
	UserAgent     string
	Referrer      string
	Country       *string
	City          *string
	DurationSecs  *float64
}

// ViewResult is returned to the caller of the view pipeline. Degraded marks a
// tracking failure that was swallowed so the page view proceeds.
type ViewResult struct {
	ViewID    string
	SessionID string
	Admitted  bool
	Reason    Reason
	IsBot     bool
	Degraded  bool
}

// EngagementMetrics is one client beacon. Clicks, Shares and Comments are
// deltas since the previous beacon; TimeOnPageSeconds is the running total.
type EngagementMetrics struct {
	ScrollDepthPercent float64
	TimeOnPageSeconds  float64
	Clicks             int64
	Shares             int64
	Comments           int64
}

// Valid reports whether the beacon is within range.
func (m EngagementMetrics) Valid() bool {
	if m.ScrollDepthPercent < 0 || m.ScrollDepthPercent > 100 {
		return false
	}
	return m.TimeOnPageSeconds >= 0 && m.Clicks >= 0 && m.Shares >= 0 && m.Comments >= 0
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked     bool
	LikeCount int64
}
