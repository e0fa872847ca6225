// Package schedule defines schedule items, the partial updates applied to
// them, and the payloads and errors exchanged with the remote service.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Item is one quiz version assigned to one class for a time window.
type Item struct {
	// ClientID is generated locally and never changes. It is the only
	// identity guaranteed to exist as soon as the item is created.
	ClientID string `json:"clientId" yaml:"clientId"`

	// ServerID is assigned when the create call round-trips. Empty means
	// the item has not been persisted yet.
	ServerID string `json:"serverId,omitempty" yaml:"serverId,omitempty"`

	QuizID      string `json:"quizId" yaml:"quizId" validate:"required"`
	QuizRootID  string `json:"quizRootId" yaml:"quizRootId" validate:"required"`
	QuizVersion int    `json:"quizVersion" yaml:"quizVersion" validate:"gte=0"`

	StartDate time.Time `json:"startDate" yaml:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" yaml:"endDate" validate:"required,gtefield=StartDate"`

	AttemptsAllowed         int      `json:"attemptsAllowed" yaml:"attemptsAllowed" validate:"gte=1"`
	ShowAnswersAfterAttempt bool     `json:"showAnswersAfterAttempt" yaml:"showAnswersAfterAttempt"`
	Contribution            *float64 `json:"contribution,omitempty" yaml:"contribution,omitempty" validate:"omitempty,gte=0"`

	// Display metadata, read-only from the caller's perspective.
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
}

// NewClientID returns a fresh client identifier.
func NewClientID() string {
	return uuid.NewString()
}

// Persisted reports whether the item has a server identity.
func (it Item) Persisted() bool {
	return it.ServerID != ""
}

// Duration returns the length of the item's time window.
func (it Item) Duration() time.Duration {
	return it.EndDate.Sub(it.StartDate)
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	if it.Contribution != nil {
		c := *it.Contribution
		it.Contribution = &c
	}
	return it
}

// CloneAll returns deep copies of items.
func CloneAll(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// CreatePayload is the body of a remote create call.
type CreatePayload struct {
	QuizID                  string    `json:"quizId" validate:"required"`
	QuizRootID              string    `json:"quizRootId" validate:"required"`
	QuizVersion             int       `json:"quizVersion" validate:"gte=0"`
	StartDate               time.Time `json:"startDate" validate:"required"`
	EndDate                 time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	AttemptsAllowed         *int      `json:"attemptsAllowed,omitempty" validate:"omitempty,gte=1"`
	ShowAnswersAfterAttempt *bool     `json:"showAnswersAfterAttempt,omitempty"`
	Contribution            *float64  `json:"contribution,omitempty" validate:"omitempty,gte=0"`
}

// PayloadFor builds the create payload for it.
func PayloadFor(it Item) CreatePayload {
	p := CreatePayload{
		QuizID:      it.QuizID,
		QuizRootID:  it.QuizRootID,
		QuizVersion: it.QuizVersion,
		StartDate:   it.StartDate,
		EndDate:     it.EndDate,
	}
	if it.AttemptsAllowed > 0 {
		attempts := it.AttemptsAllowed
		p.AttemptsAllowed = &attempts
	}
	show := it.ShowAnswersAfterAttempt
	p.ShowAnswersAfterAttempt = &show
	if it.Contribution != nil {
		c := *it.Contribution
		p.Contribution = &c
	}
	return p
}
