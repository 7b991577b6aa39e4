package model

import "time"

// Consent statuses. Anything else is rejected at the service boundary.
const (
	ConsentAccepted = "accepted"
	ConsentDeclined = "declined"
)

// Consent records a user's cookie-consent decision.
//
// One row per profile, upserted on every decision — we keep the latest
// status and when it was recorded, nothing more. This is a write-only sink
// as far as the rest of the system is concerned.
type Consent struct {
	ProfileID  string    `json:"profileId"  db:"profile_id"` // Spotify user ID
	Status     string    `json:"status"     db:"status"`     // "accepted" or "declined"
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
}
