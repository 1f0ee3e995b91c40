package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/answerdesk/internal/platform/pagination"
)

// BulkModerateInput applies one moderation decision to many answers.
type BulkModerateInput struct {
	AnswerIDs   []string
	ModeratorID string
	Approve     bool
	Comment     string
}

// BulkItemResult is the outcome for one answer in a bulk request.
type BulkItemResult struct {
	AnswerID string
	Answer   Answer
	Err      error
}

// BulkResult summarizes a bulk moderation run.
type BulkResult struct {
	Total   int
	Success int
	Errors  int
	Results []BulkItemResult
}

// BulkModerate moderates each answer independently; one failure never stops
// the remaining items.
func (m *Manager) BulkModerate(ctx context.Context, input BulkModerateInput) (BulkResult, error) {
	if len(input.AnswerIDs) == 0 {
		return BulkResult{}, validationError("answer_ids", "at least one answer id is required")
	}
	result := BulkResult{
		Total:   len(input.AnswerIDs),
		Results: make([]BulkItemResult, 0, len(input.AnswerIDs)),
	}
	for _, answerID := range input.AnswerIDs {
		answer, err := m.Moderate(ctx, ModerateInput{
			AnswerID:    answerID,
			ModeratorID: input.ModeratorID,
			Approve:     input.Approve,
			Comment:     input.Comment,
		})
		item := BulkItemResult{AnswerID: answerID, Answer: answer, Err: err}
		if err != nil {
			result.Errors++
			m.events.Error(ctx, "bulk_moderate", answerID, err)
		} else {
			result.Success++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

// ListInput selects answers for one question as seen by ViewerID.
type ListInput struct {
	QuestionID string
	ViewerID   string
	Filter     string
	PageSize   int
	PageToken  string
}

// ListForQuestion lists a question's answers, accepted first. Viewers
// without moderation capability only see approved answers and their own.
func (m *Manager) ListForQuestion(ctx context.Context, input ListInput) (AnswerPage, error) {
	if err := m.ready(); err != nil {
		return AnswerPage{}, err
	}
	questionID, err := requireID("question_id", input.QuestionID)
	if err != nil {
		return AnswerPage{}, err
	}
	if _, err := m.questions.GetQuestion(ctx, questionID); err != nil {
		return AnswerPage{}, notFound(err, ErrQuestionNotFound)
	}
	condition, err := AnswerFilter.Parse(input.Filter)
	if err != nil {
		return AnswerPage{}, validationError("filter", err.Error())
	}
	viewerID := strings.TrimSpace(input.ViewerID)
	caps, err := m.capabilitiesOf(ctx, viewerID)
	if err != nil {
		return AnswerPage{}, err
	}

	page, err := m.answers.ListQuestionAnswers(ctx, AnswerQuery{
		QuestionID:       questionID,
		Condition:        condition,
		RestrictToViewer: !caps.CanModerate,
		ViewerID:         viewerID,
		PageSize:         pagination.ClampPageSize(input.PageSize, answerPageSize),
		PageToken:        strings.TrimSpace(input.PageToken),
	})
	if err != nil {
		return AnswerPage{}, fmt.Errorf("list answers: %w", err)
	}
	return page, nil
}

// ListActionsInput selects an answer's history.
type ListActionsInput struct {
	AnswerID string
	ActorID  string
	Filter   string
}

// ListActions returns an answer's action log for moderators and
// administrators.
func (m *Manager) ListActions(ctx context.Context, input ListActionsInput) ([]Action, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	answerID, err := requireID("answer_id", input.AnswerID)
	if err != nil {
		return nil, err
	}
	actorID, err := requireID("actor_id", input.ActorID)
	if err != nil {
		return nil, err
	}
	condition, err := ActionFilter.Parse(input.Filter)
	if err != nil {
		return nil, validationError("filter", err.Error())
	}
	caps, err := m.capabilitiesOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.CanModerate {
		m.events.Security(ctx, "list_actions", actorID, "missing moderator capability")
		return nil, ErrCannotModerate
	}
	if _, err := m.answers.GetAnswer(ctx, answerID); err != nil {
		return nil, notFound(err, ErrAnswerNotFound)
	}
	actions, err := m.answers.ListAnswerActions(ctx, answerID, condition)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

// capabilitiesOf resolves a viewer's capabilities. Anonymous and unknown
// viewers have none.
func (m *Manager) capabilitiesOf(ctx context.Context, userID string) (Capabilities, error) {
	if userID == "" {
		return Capabilities{}, nil
	}
	user, err := m.users.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Capabilities{}, nil
	}
	if err != nil {
		return Capabilities{}, fmt.Errorf("load user: %w", err)
	}
	return user.Capabilities(), nil
}
