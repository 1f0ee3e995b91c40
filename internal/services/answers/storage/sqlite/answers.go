package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/platform/filter"
	"github.com/louisbranch/answerdesk/internal/platform/pagination"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

const answerColumns = `id, question_id, expert_id, content, is_approved, was_approved, moderated_by, moderated_at,
moderation_comment, is_accepted, likes, created_at, updated_at`

// GetAnswer loads one answer with its posts and history.
func (s *Store) GetAnswer(ctx context.Context, answerID string) (domain.Answer, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Answer{}, err
	}
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return domain.Answer{}, fmt.Errorf("answer id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = ?`, answerID)
	answer, err := scanAnswer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("get answer: %w", err)
	}
	if err := s.hydrate(ctx, &answer); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// FindAnswerByExpert loads the expert's answer to one question.
func (s *Store) FindAnswerByExpert(ctx context.Context, questionID string, expertID string) (domain.Answer, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Answer{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE question_id = ? AND expert_id = ?`,
		strings.TrimSpace(questionID), strings.TrimSpace(expertID))
	answer, err := scanAnswer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("find answer by expert: %w", err)
	}
	if err := s.hydrate(ctx, &answer); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// ListQuestionAnswers lists one page of a question's answers, accepted first
// then oldest first.
func (s *Store) ListQuestionAnswers(ctx context.Context, query domain.AnswerQuery) (domain.AnswerPage, error) {
	if err := s.ready(ctx); err != nil {
		return domain.AnswerPage{}, err
	}
	if query.PageSize <= 0 {
		return domain.AnswerPage{}, fmt.Errorf("page size must be greater than zero")
	}
	offset, err := pagination.DecodeOffset(query.PageToken)
	if err != nil {
		return domain.AnswerPage{}, apperrors.Wrap(apperrors.CodeValidationFailed, "invalid page token", err)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + answerColumns + ` FROM answers WHERE question_id = ?`)
	params := []any{query.QuestionID}
	if query.RestrictToViewer {
		sb.WriteString(` AND (is_approved = 1 OR expert_id = ?)`)
		params = append(params, query.ViewerID)
	}
	if !query.Condition.Empty() {
		sb.WriteString(` AND (` + query.Condition.Clause + `)`)
		params = append(params, query.Condition.Params...)
	}
	sb.WriteString(` ORDER BY is_accepted DESC, created_at ASC, id ASC LIMIT ? OFFSET ?`)
	params = append(params, query.PageSize+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, sb.String(), params...)
	if err != nil {
		return domain.AnswerPage{}, fmt.Errorf("list question answers: %w", err)
	}
	answers := make([]domain.Answer, 0, query.PageSize)
	for rows.Next() {
		answer, scanErr := scanAnswer(rows.Scan)
		if scanErr != nil {
			_ = rows.Close()
			return domain.AnswerPage{}, fmt.Errorf("scan answer: %w", scanErr)
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return domain.AnswerPage{}, fmt.Errorf("iterate answers: %w", err)
	}
	_ = rows.Close()

	page := domain.AnswerPage{}
	if len(answers) > query.PageSize {
		answers = answers[:query.PageSize]
		page.NextPageToken = pagination.EncodeOffset(offset + query.PageSize)
	}
	for i := range answers {
		if err := s.hydrate(ctx, &answers[i]); err != nil {
			return domain.AnswerPage{}, err
		}
	}
	page.Answers = answers
	return page, nil
}

// ListAnswerActions lists an answer's history in sequence order.
func (s *Store) ListAnswerActions(ctx context.Context, answerID string, condition filter.SQLCondition) ([]domain.Action, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return listActions(ctx, s.sqlDB, answerID, condition)
}

// Commit applies one answer transition and its question bookkeeping in a
// single transaction.
func (s *Store) Commit(ctx context.Context, t domain.Transition) (domain.Question, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Question{}, err
	}
	if strings.TrimSpace(t.Answer.ID) == "" {
		return domain.Question{}, fmt.Errorf("answer id is required")
	}
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Question{}, fmt.Errorf("begin answer commit: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback answer commit: %v", cause, rollbackErr)
		}
		return cause
	}

	switch t.Kind {
	case domain.TransitionCreate:
		if err := insertAnswer(ctx, tx, t.Answer); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
	case domain.TransitionSave:
		if err := updateAnswer(ctx, tx, t.Answer, t.ExpectApproved); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
	case domain.TransitionDelete:
		result, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, t.Answer.ID)
		if err != nil {
			return domain.Question{}, rollbackWith(fmt.Errorf("delete answer: %w", err))
		}
		if err := requireAffected(result, domain.ErrNotFound); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
	default:
		return domain.Question{}, rollbackWith(fmt.Errorf("unknown transition kind %d", t.Kind))
	}

	if t.Kind != domain.TransitionDelete {
		if err := replaceSocialPosts(ctx, tx, t.Answer); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
		if err := insertActions(ctx, tx, t.Answer.ID, t.Answer.Actions.Pending()); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
	}

	questionID := t.Answer.QuestionID
	if !t.Question.IsZero() {
		if t.Question.QuestionID != "" {
			questionID = t.Question.QuestionID
		}
		if err := applyQuestionChange(ctx, tx, questionID, t.Question, at); err != nil {
			return domain.Question{}, rollbackWith(err)
		}
	}

	question, err := getQuestion(ctx, tx, questionID)
	if err != nil {
		return domain.Question{}, rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Question{}, fmt.Errorf("commit answer transition: %w", err)
	}
	return question, nil
}

// AcceptAnswer flags answer as the question's accepted answer if none is
// accepted yet.
func (s *Store) AcceptAnswer(ctx context.Context, answer domain.Answer, question domain.Question) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	at := answer.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept answer: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback accept answer: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, `
UPDATE questions
SET has_accepted_answer = 1,
    accepted_answer_id = ?,
    status = CASE WHEN status = 'closed' THEN status ELSE 'answered' END,
    updated_at = ?
WHERE id = ? AND has_accepted_answer = 0
`, answer.ID, toMillis(at), question.ID)
	if err != nil {
		return rollbackWith(fmt.Errorf("flag accepted question: %w", err))
	}
	if err := requireAffected(result, domain.ErrConflict); err != nil {
		var exists int
		if scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, question.ID).Scan(&exists); errors.Is(scanErr, sql.ErrNoRows) {
			return rollbackWith(domain.ErrNotFound)
		}
		return rollbackWith(err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE answers SET is_accepted = 0, updated_at = ? WHERE question_id = ? AND is_accepted = 1 AND id <> ?`,
		toMillis(at), question.ID, answer.ID,
	); err != nil {
		return rollbackWith(fmt.Errorf("clear accepted answers: %w", err))
	}
	result, err = tx.ExecContext(ctx,
		`UPDATE answers SET is_accepted = 1, updated_at = ? WHERE id = ? AND question_id = ? AND is_approved = 1`,
		toMillis(at), answer.ID, question.ID,
	)
	if err != nil {
		return rollbackWith(fmt.Errorf("mark answer accepted: %w", err))
	}
	if err := requireAffected(result, domain.ErrConflict); err != nil {
		return rollbackWith(err)
	}
	if err := insertActions(ctx, tx, answer.ID, answer.Actions.Pending()); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept answer: %w", err)
	}
	return nil
}

func insertAnswer(ctx context.Context, tx *sql.Tx, answer domain.Answer) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO answers (`+answerColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		answer.ID,
		answer.QuestionID,
		answer.ExpertID,
		answer.Content,
		answer.IsApproved,
		answer.WasApproved,
		answer.ModeratedBy,
		toNullMillis(answer.ModeratedAt),
		answer.ModerationComment,
		answer.IsAccepted,
		answer.Likes,
		toMillis(answer.CreatedAt),
		toMillis(answer.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func updateAnswer(ctx context.Context, tx *sql.Tx, answer domain.Answer, expectApproved *bool) error {
	query := `
UPDATE answers
SET content = ?,
    is_approved = ?,
    was_approved = ?,
    moderated_by = ?,
    moderated_at = ?,
    moderation_comment = ?,
    is_accepted = ?,
    likes = ?,
    updated_at = ?
WHERE id = ?`
	args := []any{
		answer.Content,
		answer.IsApproved,
		answer.WasApproved,
		answer.ModeratedBy,
		toNullMillis(answer.ModeratedAt),
		answer.ModerationComment,
		answer.IsAccepted,
		answer.Likes,
		toMillis(answer.UpdatedAt),
		answer.ID,
	}
	if expectApproved != nil {
		query += ` AND is_approved = ?`
		args = append(args, *expectApproved)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update answer: %w", err)
	}
	if expectApproved == nil {
		return requireAffected(result, domain.ErrNotFound)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM answers WHERE id = ?`, answer.ID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return fmt.Errorf("check answer: %w", err)
	}
	return domain.ErrConflict
}

func replaceSocialPosts(ctx context.Context, tx *sql.Tx, answer domain.Answer) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM answer_social_posts WHERE answer_id = ?`, answer.ID); err != nil {
		return fmt.Errorf("clear social posts: %w", err)
	}
	for _, post := range answer.TrackedPosts() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answer_social_posts (answer_id, platform, post_id, published_at) VALUES (?, ?, ?, ?)`,
			answer.ID, string(post.Platform), post.PostID, toMillis(post.PublishedAt),
		); err != nil {
			return fmt.Errorf("insert social post %s: %w", post.Platform, err)
		}
	}
	return nil
}

func insertActions(ctx context.Context, tx *sql.Tx, answerID string, actions []domain.Action) error {
	for _, action := range actions {
		info, err := encodeInfo(action.Info)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO answer_actions (answer_id, seq, kind, info_json, created_at)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM answer_actions WHERE answer_id = ?), ?, ?, ?)
`, answerID, answerID, string(action.Kind), info, toMillis(action.At)); err != nil {
			return fmt.Errorf("insert answer action %s: %w", action.Kind, err)
		}
	}
	return nil
}

func listActions(ctx context.Context, q execer, answerID string, condition filter.SQLCondition) ([]domain.Action, error) {
	query := `SELECT seq, kind, info_json, created_at FROM answer_actions WHERE answer_id = ?`
	params := []any{answerID}
	if !condition.Empty() {
		query += ` AND (` + condition.Clause + `)`
		params = append(params, condition.Params...)
	}
	query += ` ORDER BY seq ASC`

	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list answer actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var (
			action    domain.Action
			kind      string
			infoJSON  string
			createdAt int64
		)
		if err := rows.Scan(&action.Seq, &kind, &infoJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan answer action: %w", err)
		}
		info, err := decodeInfo(infoJSON)
		if err != nil {
			return nil, err
		}
		action.Kind = domain.ActionKind(kind)
		action.Info = info
		action.At = fromMillis(createdAt)
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer actions: %w", err)
	}
	return actions, nil
}

func (s *Store) hydrate(ctx context.Context, answer *domain.Answer) error {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT platform, post_id, published_at FROM answer_social_posts WHERE answer_id = ?`, answer.ID)
	if err != nil {
		return fmt.Errorf("list social posts: %w", err)
	}
	posts := make(map[domain.Platform]domain.SocialPost)
	for rows.Next() {
		var (
			platform    string
			postID      string
			publishedAt int64
		)
		if err := rows.Scan(&platform, &postID, &publishedAt); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan social post: %w", err)
		}
		posts[domain.Platform(platform)] = domain.SocialPost{
			Platform:    domain.Platform(platform),
			PostID:      postID,
			PublishedAt: fromMillis(publishedAt),
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate social posts: %w", err)
	}
	_ = rows.Close()
	answer.SocialPosts = posts

	actions, err := listActions(ctx, s.sqlDB, answer.ID, filter.SQLCondition{})
	if err != nil {
		return err
	}
	answer.Actions = domain.RestoreActionLog(actions)
	return nil
}

func scanAnswer(scan func(dest ...any) error) (domain.Answer, error) {
	var (
		answer      domain.Answer
		moderatedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	if err := scan(
		&answer.ID,
		&answer.QuestionID,
		&answer.ExpertID,
		&answer.Content,
		&answer.IsApproved,
		&answer.WasApproved,
		&answer.ModeratedBy,
		&moderatedAt,
		&answer.ModerationComment,
		&answer.IsAccepted,
		&answer.Likes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Answer{}, err
	}
	answer.ModeratedAt = fromNullMillis(moderatedAt)
	answer.CreatedAt = fromMillis(createdAt)
	answer.UpdatedAt = fromMillis(updatedAt)
	return answer, nil
}

func encodeInfo(info map[string]string) (string, error) {
	if len(info) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode action info: %w", err)
	}
	return string(data), nil
}

func decodeInfo(value string) (map[string]string, error) {
	info := map[string]string{}
	if strings.TrimSpace(value) == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(value), &info); err != nil {
		return nil, fmt.Errorf("decode action info: %w", err)
	}
	return info, nil
}
