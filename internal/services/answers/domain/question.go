package domain

import "time"

// QuestionStatus is the lifecycle status of a question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	// QuestionClosed is set outside this service and is never overwritten here.
	QuestionClosed QuestionStatus = "closed"
)

// Question is the parent record an answer belongs to.
type Question struct {
	ID                string
	Slug              string
	Title             string
	AuthorID          string
	Status            QuestionStatus
	AnswersCount      int
	HasAcceptedAnswer bool
	AcceptedAnswerID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NextStatus derives the status for answersCount approved answers.
func NextStatus(current QuestionStatus, answersCount int) QuestionStatus {
	if current == QuestionClosed {
		return QuestionClosed
	}
	if answersCount > 0 {
		return QuestionAnswered
	}
	return QuestionPending
}

// QuestionChange is the bookkeeping one answer transition applies to its
// parent question. Stores apply it as a single atomic update.
type QuestionChange struct {
	QuestionID string
	// AnswersDelta is added to answersCount; the result is floored at zero.
	AnswersDelta int
	// ReleaseAccepted clears the accepted-answer flag.
	ReleaseAccepted bool
}

// IsZero reports whether the change leaves the question untouched.
func (c QuestionChange) IsZero() bool {
	return c.AnswersDelta == 0 && !c.ReleaseAccepted
}

// Apply returns q with the change applied. Store implementations must
// produce the same result.
func (c QuestionChange) Apply(q Question, at time.Time) Question {
	if c.IsZero() {
		return q
	}
	q.AnswersCount = max(0, q.AnswersCount+c.AnswersDelta)
	if c.ReleaseAccepted {
		q.HasAcceptedAnswer = false
		q.AcceptedAnswerID = ""
	}
	q.Status = NextStatus(q.Status, q.AnswersCount)
	q.UpdatedAt = at
	return q
}

// Synchronizer derives parent question bookkeeping for answer transitions.
type Synchronizer struct{}

// Increment counts one more approved answer.
func (Synchronizer) Increment(questionID string) QuestionChange {
	return QuestionChange{QuestionID: questionID, AnswersDelta: 1}
}

// Decrement counts one fewer approved answer, releasing acceptance when the
// affected answer was the accepted one.
func (Synchronizer) Decrement(questionID string, wasAccepted bool) QuestionChange {
	return QuestionChange{QuestionID: questionID, AnswersDelta: -1, ReleaseAccepted: wasAccepted}
}

// Removed is the bookkeeping for deleting an answer.
func (s Synchronizer) Removed(answer Answer) QuestionChange {
	change := QuestionChange{QuestionID: answer.QuestionID, ReleaseAccepted: answer.IsAccepted}
	if answer.IsApproved {
		change.AnswersDelta = -1
	}
	return change
}

// Accepted returns q after answerID became its accepted answer.
func (Synchronizer) Accepted(q Question, answerID string, at time.Time) Question {
	q.HasAcceptedAnswer = true
	q.AcceptedAnswerID = answerID
	q.Status = NextStatus(q.Status, max(q.AnswersCount, 1))
	q.UpdatedAt = at
	return q
}
