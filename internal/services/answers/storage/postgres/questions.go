package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

// GetQuestion loads one question.
func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Question{}, err
	}
	return getQuestion(ctx, s.pool, strings.TrimSpace(questionID))
}

// PutQuestion inserts or updates a question's descriptive fields. Answer
// bookkeeping columns are only written on insert.
func (s *Store) PutQuestion(ctx context.Context, question domain.Question) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	question.ID = strings.TrimSpace(question.ID)
	if question.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if strings.TrimSpace(question.AuthorID) == "" {
		return fmt.Errorf("question author id is required")
	}
	if question.Status == "" {
		question.Status = domain.QuestionPending
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now()
	}
	if question.UpdatedAt.IsZero() {
		question.UpdatedAt = question.CreatedAt
	}

	var acceptedID *string
	if id := strings.TrimSpace(question.AcceptedAnswerID); id != "" {
		acceptedID = &id
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO questions (id, slug, title, author_id, status, answers_count, has_accepted_answer, accepted_answer_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    slug = EXCLUDED.slug,
    title = EXCLUDED.title,
    author_id = EXCLUDED.author_id,
    status = EXCLUDED.status,
    updated_at = EXCLUDED.updated_at
`,
		question.ID,
		strings.TrimSpace(question.Slug),
		question.Title,
		question.AuthorID,
		string(question.Status),
		question.AnswersCount,
		question.HasAcceptedAnswer,
		acceptedID,
		utc(question.CreatedAt),
		utc(question.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("put question: %w", err)
	}
	return nil
}

// GetUser loads one user.
func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	if err := s.ready(ctx); err != nil {
		return domain.User{}, err
	}

	var (
		user domain.User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, role, reputation FROM users WHERE id = $1`,
		strings.TrimSpace(userID),
	).Scan(&user.ID, &user.DisplayName, &role, &user.Reputation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	user.Role = domain.Role(role)
	return user, nil
}

// PutUser inserts or updates a user's profile and role. Reputation is only
// written on insert.
func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	role, err := domain.ParseRole(string(user.Role))
	if err != nil {
		return err
	}
	now := utc(time.Now())

	if _, err := s.pool.Exec(ctx, `
INSERT INTO users (id, display_name, role, reputation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO UPDATE SET
    display_name = EXCLUDED.display_name,
    role = EXCLUDED.role,
    updated_at = EXCLUDED.updated_at
`, user.ID, user.DisplayName, string(role), user.Reputation, now); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// AdjustReputation adds delta to the user's reputation.
func (s *Store) AdjustReputation(ctx context.Context, userID string, delta int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET reputation = reputation + $1, updated_at = $2 WHERE id = $3`,
		delta, utc(time.Now()), strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("adjust reputation: %w", err)
	}
	return requireAffected(tag, domain.ErrNotFound)
}

func getQuestion(ctx context.Context, q querier, questionID string) (domain.Question, error) {
	var (
		question   domain.Question
		status     string
		acceptedID *string
	)
	err := q.QueryRow(ctx, `
SELECT id, slug, title, author_id, status, answers_count, has_accepted_answer, accepted_answer_id, created_at, updated_at
FROM questions
WHERE id = $1
`, questionID).Scan(
		&question.ID,
		&question.Slug,
		&question.Title,
		&question.AuthorID,
		&status,
		&question.AnswersCount,
		&question.HasAcceptedAnswer,
		&acceptedID,
		&question.CreatedAt,
		&question.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrNotFound
		}
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	question.Status = domain.QuestionStatus(status)
	if acceptedID != nil {
		question.AcceptedAnswerID = *acceptedID
	}
	question.CreatedAt = question.CreatedAt.UTC()
	question.UpdatedAt = question.UpdatedAt.UTC()
	return question, nil
}

// applyQuestionChange mirrors domain.QuestionChange.Apply in one statement.
// SET expressions read the row as it was before the update.
func applyQuestionChange(ctx context.Context, tx pgx.Tx, questionID string, change domain.QuestionChange, at time.Time) error {
	tag, err := tx.Exec(ctx, `
UPDATE questions
SET answers_count = GREATEST(0, answers_count + $1::integer),
    has_accepted_answer = CASE WHEN $2::boolean THEN FALSE ELSE has_accepted_answer END,
    accepted_answer_id = CASE WHEN $2::boolean THEN NULL ELSE accepted_answer_id END,
    status = CASE
        WHEN status = 'closed' THEN status
        WHEN GREATEST(0, answers_count + $1::integer) > 0 THEN 'answered'
        ELSE 'pending'
    END,
    updated_at = $3
WHERE id = $4
`, change.AnswersDelta, change.ReleaseAccepted, utc(at), questionID)
	if err != nil {
		return fmt.Errorf("apply question bookkeeping: %w", err)
	}
	return requireAffected(tag, domain.ErrNotFound)
}
