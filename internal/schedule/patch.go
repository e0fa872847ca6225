package schedule

import "time"

// Patch is a partial update of an item. Nil fields are left unchanged.
type Patch struct {
	QuizID                  *string    `json:"quizId,omitempty"`
	QuizRootID              *string    `json:"quizRootId,omitempty"`
	QuizVersion             *int       `json:"quizVersion,omitempty"`
	StartDate               *time.Time `json:"startDate,omitempty"`
	EndDate                 *time.Time `json:"endDate,omitempty"`
	AttemptsAllowed         *int       `json:"attemptsAllowed,omitempty"`
	ShowAnswersAfterAttempt *bool      `json:"showAnswersAfterAttempt,omitempty"`
	Contribution            *float64   `json:"contribution,omitempty"`
}

// RangePatch returns a patch that moves an item to [start, end].
func RangePatch(start, end time.Time) Patch {
	return Patch{StartDate: &start, EndDate: &end}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.QuizID == nil && p.QuizRootID == nil && p.QuizVersion == nil &&
		p.StartDate == nil && p.EndDate == nil && p.AttemptsAllowed == nil &&
		p.ShowAnswersAfterAttempt == nil && p.Contribution == nil
}

// Merge overlays newer onto p; newer's non-nil fields win.
func (p Patch) Merge(newer Patch) Patch {
	if newer.QuizID != nil {
		p.QuizID = newer.QuizID
	}
	if newer.QuizRootID != nil {
		p.QuizRootID = newer.QuizRootID
	}
	if newer.QuizVersion != nil {
		p.QuizVersion = newer.QuizVersion
	}
	if newer.StartDate != nil {
		p.StartDate = newer.StartDate
	}
	if newer.EndDate != nil {
		p.EndDate = newer.EndDate
	}
	if newer.AttemptsAllowed != nil {
		p.AttemptsAllowed = newer.AttemptsAllowed
	}
	if newer.ShowAnswersAfterAttempt != nil {
		p.ShowAnswersAfterAttempt = newer.ShowAnswersAfterAttempt
	}
	if newer.Contribution != nil {
		p.Contribution = newer.Contribution
	}
	return p
}

// Apply returns it with the patch applied.
func (p Patch) Apply(it Item) Item {
	it = it.Clone()
	if p.QuizID != nil {
		it.QuizID = *p.QuizID
	}
	if p.QuizRootID != nil {
		it.QuizRootID = *p.QuizRootID
	}
	if p.QuizVersion != nil {
		it.QuizVersion = *p.QuizVersion
	}
	if p.StartDate != nil {
		it.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		it.EndDate = *p.EndDate
	}
	if p.AttemptsAllowed != nil {
		it.AttemptsAllowed = *p.AttemptsAllowed
	}
	if p.ShowAnswersAfterAttempt != nil {
		it.ShowAnswersAfterAttempt = *p.ShowAnswersAfterAttempt
	}
	if p.Contribution != nil {
		c := *p.Contribution
		it.Contribution = &c
	}
	return it
}
