package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
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

	answer, err := scanAnswer(s.pool.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = $1`, answerID).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("get answer: %w", err)
	}
	if err := hydrate(ctx, s.pool, &answer); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// FindAnswerByExpert loads the expert's answer to one question.
func (s *Store) FindAnswerByExpert(ctx context.Context, questionID string, expertID string) (domain.Answer, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Answer{}, err
	}

	answer, err := scanAnswer(s.pool.QueryRow(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE question_id = $1 AND expert_id = $2`,
		strings.TrimSpace(questionID), strings.TrimSpace(expertID),
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("find answer by expert: %w", err)
	}
	if err := hydrate(ctx, s.pool, &answer); err != nil {
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
		sb.WriteString(` AND (is_approved OR expert_id = ?)`)
		params = append(params, query.ViewerID)
	}
	if !query.Condition.Empty() {
		sb.WriteString(` AND (` + query.Condition.Clause + `)`)
		params = append(params, query.Condition.Params...)
	}
	sb.WriteString(` ORDER BY is_accepted DESC, created_at ASC, id ASC LIMIT ? OFFSET ?`)
	params = append(params, query.PageSize+1, offset)

	rows, err := s.pool.Query(ctx, rebind(sb.String()), params...)
	if err != nil {
		return domain.AnswerPage{}, fmt.Errorf("list question answers: %w", err)
	}
	answers := make([]domain.Answer, 0, query.PageSize)
	for rows.Next() {
		answer, scanErr := scanAnswer(rows.Scan)
		if scanErr != nil {
			rows.Close()
			return domain.AnswerPage{}, fmt.Errorf("scan answer: %w", scanErr)
		}
		answers = append(answers, answer)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.AnswerPage{}, fmt.Errorf("iterate answers: %w", err)
	}

	page := domain.AnswerPage{}
	if len(answers) > query.PageSize {
		answers = answers[:query.PageSize]
		page.NextPageToken = pagination.EncodeOffset(offset + query.PageSize)
	}
	for i := range answers {
		if err := hydrate(ctx, s.pool, &answers[i]); err != nil {
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
	return listActions(ctx, s.pool, answerID, condition)
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("begin answer commit: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
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
		tag, err := tx.Exec(ctx, `DELETE FROM answers WHERE id = $1`, t.Answer.ID)
		if err != nil {
			return domain.Question{}, rollbackWith(fmt.Errorf("delete answer: %w", err))
		}
		if err := requireAffected(tag, domain.ErrNotFound); err != nil {
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
	if err := tx.Commit(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("commit answer transition: %w", err)
	}
	return question, nil
}

// AcceptAnswer flags answer as the question's accepted answer if none is
// accepted yet. A concurrent accept blocks on the question row and then
// fails the has_accepted_answer guard.
func (s *Store) AcceptAnswer(ctx context.Context, answer domain.Answer, question domain.Question) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	at := answer.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept answer: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("%w: rollback accept answer: %v", cause, rollbackErr)
		}
		return cause
	}

	tag, err := tx.Exec(ctx, `
UPDATE questions
SET has_accepted_answer = TRUE,
    accepted_answer_id = $1,
    status = CASE WHEN status = 'closed' THEN status ELSE 'answered' END,
    updated_at = $2
WHERE id = $3 AND NOT has_accepted_answer
`, answer.ID, utc(at), question.ID)
	if err != nil {
		return rollbackWith(fmt.Errorf("flag accepted question: %w", err))
	}
	if err := requireAffected(tag, domain.ErrConflict); err != nil {
		var exists int
		if scanErr := tx.QueryRow(ctx, `SELECT 1 FROM questions WHERE id = $1`, question.ID).Scan(&exists); errors.Is(scanErr, pgx.ErrNoRows) {
			return rollbackWith(domain.ErrNotFound)
		}
		return rollbackWith(err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE answers SET is_accepted = FALSE, updated_at = $1 WHERE question_id = $2 AND is_accepted AND id <> $3`,
		utc(at), question.ID, answer.ID,
	); err != nil {
		return rollbackWith(fmt.Errorf("clear accepted answers: %w", err))
	}
	tag, err = tx.Exec(ctx,
		`UPDATE answers SET is_accepted = TRUE, updated_at = $1 WHERE id = $2 AND question_id = $3 AND is_approved`,
		utc(at), answer.ID, question.ID,
	)
	if err != nil {
		return rollbackWith(fmt.Errorf("mark answer accepted: %w", err))
	}
	if err := requireAffected(tag, domain.ErrConflict); err != nil {
		return rollbackWith(err)
	}
	if err := insertActions(ctx, tx, answer.ID, answer.Actions.Pending()); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept answer: %w", err)
	}
	return nil
}

func insertAnswer(ctx context.Context, tx pgx.Tx, answer domain.Answer) error {
	_, err := tx.Exec(ctx, `
INSERT INTO answers (`+answerColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`,
		answer.ID,
		answer.QuestionID,
		answer.ExpertID,
		answer.Content,
		answer.IsApproved,
		answer.WasApproved,
		answer.ModeratedBy,
		answer.ModeratedAt,
		answer.ModerationComment,
		answer.IsAccepted,
		answer.Likes,
		utc(answer.CreatedAt),
		utc(answer.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func updateAnswer(ctx context.Context, tx pgx.Tx, answer domain.Answer, expectApproved *bool) error {
	query := `
UPDATE answers
SET content = $1,
    is_approved = $2,
    was_approved = $3,
    moderated_by = $4,
    moderated_at = $5,
    moderation_comment = $6,
    is_accepted = $7,
    likes = $8,
    updated_at = $9
WHERE id = $10`
	args := []any{
		answer.Content,
		answer.IsApproved,
		answer.WasApproved,
		answer.ModeratedBy,
		answer.ModeratedAt,
		answer.ModerationComment,
		answer.IsAccepted,
		answer.Likes,
		utc(answer.UpdatedAt),
		answer.ID,
	}
	if expectApproved != nil {
		query += ` AND is_approved = $11`
		args = append(args, *expectApproved)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update answer: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if expectApproved == nil {
		return domain.ErrNotFound
	}
	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM answers WHERE id = $1`, answer.ID).Scan(&exists)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return fmt.Errorf("check answer: %w", err)
	}
	return domain.ErrConflict
}

func replaceSocialPosts(ctx context.Context, tx pgx.Tx, answer domain.Answer) error {
	if _, err := tx.Exec(ctx, `DELETE FROM answer_social_posts WHERE answer_id = $1`, answer.ID); err != nil {
		return fmt.Errorf("clear social posts: %w", err)
	}
	for _, post := range answer.TrackedPosts() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO answer_social_posts (answer_id, platform, post_id, published_at) VALUES ($1, $2, $3, $4)`,
			answer.ID, string(post.Platform), post.PostID, utc(post.PublishedAt),
		); err != nil {
			return fmt.Errorf("insert social post %s: %w", post.Platform, err)
		}
	}
	return nil
}

// insertActions appends actions after the answer row was written in the same
// transaction, which holds the row lock that serializes seq assignment.
func insertActions(ctx context.Context, tx pgx.Tx, answerID string, actions []domain.Action) error {
	for _, action := range actions {
		info, err := encodeInfo(action.Info)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO answer_actions (answer_id, seq, kind, info_json, created_at)
VALUES ($1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM answer_actions WHERE answer_id = $1), $2, $3, $4)
`, answerID, string(action.Kind), info, utc(action.At)); err != nil {
			return fmt.Errorf("insert answer action %s: %w", action.Kind, err)
		}
	}
	return nil
}

func listActions(ctx context.Context, q querier, answerID string, condition filter.SQLCondition) ([]domain.Action, error) {
	query := `SELECT seq, kind, info_json, created_at FROM answer_actions WHERE answer_id = ?`
	params := []any{answerID}
	if !condition.Empty() {
		query += ` AND (` + condition.Clause + `)`
		params = append(params, condition.Params...)
	}
	query += ` ORDER BY seq ASC`

	rows, err := q.Query(ctx, rebind(query), params...)
	if err != nil {
		return nil, fmt.Errorf("list answer actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var (
			action   domain.Action
			kind     string
			infoJSON []byte
		)
		if err := rows.Scan(&action.Seq, &kind, &infoJSON, &action.At); err != nil {
			return nil, fmt.Errorf("scan answer action: %w", err)
		}
		info := map[string]string{}
		if len(infoJSON) > 0 {
			if err := json.Unmarshal(infoJSON, &info); err != nil {
				return nil, fmt.Errorf("decode action info: %w", err)
			}
		}
		action.Kind = domain.ActionKind(kind)
		action.Info = info
		action.At = action.At.UTC()
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer actions: %w", err)
	}
	return actions, nil
}

func hydrate(ctx context.Context, q querier, answer *domain.Answer) error {
	rows, err := q.Query(ctx,
		`SELECT platform, post_id, published_at FROM answer_social_posts WHERE answer_id = $1`, answer.ID)
	if err != nil {
		return fmt.Errorf("list social posts: %w", err)
	}
	posts := make(map[domain.Platform]domain.SocialPost)
	for rows.Next() {
		var post domain.SocialPost
		var platform string
		if err := rows.Scan(&platform, &post.PostID, &post.PublishedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan social post: %w", err)
		}
		post.Platform = domain.Platform(platform)
		post.PublishedAt = post.PublishedAt.UTC()
		posts[post.Platform] = post
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate social posts: %w", err)
	}
	answer.SocialPosts = posts

	actions, err := listActions(ctx, q, answer.ID, filter.SQLCondition{})
	if err != nil {
		return err
	}
	answer.Actions = domain.RestoreActionLog(actions)
	return nil
}

func scanAnswer(scan func(dest ...any) error) (domain.Answer, error) {
	var answer domain.Answer
	if err := scan(
		&answer.ID,
		&answer.QuestionID,
		&answer.ExpertID,
		&answer.Content,
		&answer.IsApproved,
		&answer.WasApproved,
		&answer.ModeratedBy,
		&answer.ModeratedAt,
		&answer.ModerationComment,
		&answer.IsAccepted,
		&answer.Likes,
		&answer.CreatedAt,
		&answer.UpdatedAt,
	); err != nil {
		return domain.Answer{}, err
	}
	if answer.ModeratedAt != nil {
		moderatedAt := answer.ModeratedAt.UTC()
		answer.ModeratedAt = &moderatedAt
	}
	answer.CreatedAt = answer.CreatedAt.UTC()
	answer.UpdatedAt = answer.UpdatedAt.UTC()
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
