package partyapi

import (
	"encoding/json"
	"time"
)

// Bid is the wire form of a bid. Issue values are written as JSON strings;
// numeric values are accepted on input and kept in their JSON text form.
type Bid struct {
	IssueValues map[string]json.RawMessage `json:"issuevalues"`
}

// ProgressRounds is round-based session progress.
type ProgressRounds struct {
	Duration     int   `json:"duration"`     // Total number of rounds
	CurrentRound int   `json:"currentRound"` // Zero-based current round
	EndTime      int64 `json:"endtime"`      // Deadline in unix millis
}

// ProgressTime is deadline-based session progress.
type ProgressTime struct {
	Duration int64 `json:"duration"` // Session length in millis
	Start    int64 `json:"start"`    // Session start in unix millis
}

// Progress holds exactly one of the progress kinds.
type Progress struct {
	Rounds *ProgressRounds `json:"ProgressRounds,omitempty"`
	Time   *ProgressTime   `json:"ProgressTime,omitempty"`
}

// Settings opens a session.
type Settings struct {
	ID         string         `json:"id"`
	Profile    string         `json:"profile"`
	Protocol   string         `json:"protocol"`
	Progress   Progress       `json:"progress"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ActionBody is the body shared by Offer and Accept.
type ActionBody struct {
	Actor string `json:"actor"`
	Bid   *Bid   `json:"bid,omitempty"`
}

// ActionDone announces an action; Action is itself an action envelope.
type ActionDone struct {
	Action json.RawMessage `json:"action"`
}

// Finished ends the session.
type Finished struct {
	Agreements map[string]Bid `json:"agreements"`
}

// Voting is only decoded far enough to recognize it.
type Voting struct {
	Actor  string            `json:"actor,omitempty"`
	Offers []json.RawMessage `json:"offers,omitempty"`
}

// Inform and action names as they appear as envelope keys.
const (
	InformSettings       = "settings"
	InformActionDone     = "ActionDone"
	InformYourTurn       = "YourTurn"
	InformFinished       = "Finished"
	InformVoting         = "Voting"
	InformOptIn          = "OptIn"
	InformOptInWithValue = "OptInWithValue"

	ActionOffer        = "Offer"
	ActionAccept       = "Accept"
	ActionLearningDone = "LearningDone"
)

// PartyInfo describes a strategy to the outside world.
type PartyInfo struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities lists supported protocols and profile types.
type Capabilities struct {
	Behaviours []string `json:"behaviours"`
	Profiles   []string `json:"profiles"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status         string    `json:"status"`
	Strategy       string    `json:"strategy"`
	ActiveSessions int       `json:"active_sessions"`
	MaxSessions    int       `json:"max_sessions"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReceiptResponse carries a signed session receipt.
type ReceiptResponse struct {
	SessionID string `json:"session_id"`
	// Receipt is the COSE_Sign1 receipt, URL-safe base64 without padding.
	Receipt string `json:"receipt"`
	// PublicKey is the PEM-encoded key that verifies Receipt.
	PublicKey string `json:"public_key"`
	// Attestation is the base64 attestation document, if one was produced.
	Attestation string    `json:"attestation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
