package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

// GetQuestion loads one question.
func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Question{}, err
	}
	return getQuestion(ctx, s.sqlDB, strings.TrimSpace(questionID))
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

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO questions (id, slug, title, author_id, status, answers_count, has_accepted_answer, accepted_answer_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    title = excluded.title,
    author_id = excluded.author_id,
    status = excluded.status,
    updated_at = excluded.updated_at
`,
		question.ID,
		strings.TrimSpace(question.Slug),
		question.Title,
		question.AuthorID,
		string(question.Status),
		question.AnswersCount,
		question.HasAcceptedAnswer,
		nullString(question.AcceptedAnswerID),
		toMillis(question.CreatedAt),
		toMillis(question.UpdatedAt),
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
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, display_name, role, reputation FROM users WHERE id = ?`,
		strings.TrimSpace(userID),
	).Scan(&user.ID, &user.DisplayName, &role, &user.Reputation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	now := toMillis(time.Now())

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, display_name, role, reputation, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    display_name = excluded.display_name,
    role = excluded.role,
    updated_at = excluded.updated_at
`, user.ID, user.DisplayName, string(role), user.Reputation, now, now); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// AdjustReputation adds delta to the user's reputation.
func (s *Store) AdjustReputation(ctx context.Context, userID string, delta int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET reputation = reputation + ?, updated_at = ? WHERE id = ?`,
		delta, toMillis(time.Now()), strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("adjust reputation: %w", err)
	}
	return requireAffected(result, domain.ErrNotFound)
}

func getQuestion(ctx context.Context, q execer, questionID string) (domain.Question, error) {
	var (
		question   domain.Question
		status     string
		acceptedID sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	err := q.QueryRowContext(ctx, `
SELECT id, slug, title, author_id, status, answers_count, has_accepted_answer, accepted_answer_id, created_at, updated_at
FROM questions
WHERE id = ?
`, questionID).Scan(
		&question.ID,
		&question.Slug,
		&question.Title,
		&question.AuthorID,
		&status,
		&question.AnswersCount,
		&question.HasAcceptedAnswer,
		&acceptedID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, domain.ErrNotFound
		}
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	question.Status = domain.QuestionStatus(status)
	question.AcceptedAnswerID = acceptedID.String
	question.CreatedAt = fromMillis(createdAt)
	question.UpdatedAt = fromMillis(updatedAt)
	return question, nil
}

// applyQuestionChange mirrors domain.QuestionChange.Apply in one statement.
// SET expressions read the row as it was before the update.
func applyQuestionChange(ctx context.Context, tx *sql.Tx, questionID string, change domain.QuestionChange, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
UPDATE questions
SET answers_count = MAX(0, answers_count + ?),
    has_accepted_answer = CASE WHEN ? THEN 0 ELSE has_accepted_answer END,
    accepted_answer_id = CASE WHEN ? THEN NULL ELSE accepted_answer_id END,
    status = CASE
        WHEN status = 'closed' THEN status
        WHEN MAX(0, answers_count + ?) > 0 THEN 'answered'
        ELSE 'pending'
    END,
    updated_at = ?
WHERE id = ?
`, change.AnswersDelta, change.ReleaseAccepted, change.ReleaseAccepted, change.AnswersDelta, toMillis(at), questionID)
	if err != nil {
		return fmt.Errorf("apply question bookkeeping: %w", err)
	}
	return requireAffected(result, domain.ErrNotFound)
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
