// Package postgres provides the Postgres-backed answer store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

const uniqueViolationCode = "23505"

// Store provides Postgres-backed persistence for answers, their parent
// questions, user reputation, and social tokens.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ domain.AnswerStore      = (*Store)(nil)
	_ domain.QuestionStore    = (*Store)(nil)
	_ domain.UserStore        = (*Store)(nil)
	_ domain.SocialTokenStore = (*Store)(nil)
)

// Open connects to dsn, verifies the connection, and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &Store{pool: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'member',
			reputation INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			author_id TEXT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'answered', 'closed')),
			answers_count INTEGER NOT NULL DEFAULT 0 CHECK (answers_count >= 0),
			has_accepted_answer BOOLEAN NOT NULL DEFAULT FALSE,
			accepted_answer_id TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_slug ON questions(slug) WHERE slug <> '';`,
		`CREATE TABLE IF NOT EXISTS answers (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			expert_id TEXT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			was_approved BOOLEAN NOT NULL DEFAULT FALSE,
			moderated_by TEXT NOT NULL DEFAULT '',
			moderated_at TIMESTAMPTZ,
			moderation_comment TEXT NOT NULL DEFAULT '',
			is_accepted BOOLEAN NOT NULL DEFAULT FALSE,
			likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (question_id, expert_id),
			CHECK (NOT is_accepted OR is_approved)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id, is_accepted DESC, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS answer_actions (
			answer_id TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			info_json JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (answer_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS answer_social_posts (
			answer_id TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			post_id TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (answer_id, platform)
		);`,
		`CREATE TABLE IF NOT EXISTS social_tokens (
			provider TEXT PRIMARY KEY,
			access_token TEXT NOT NULL DEFAULT '',
			access_expires_at TIMESTAMPTZ,
			refresh_token TEXT NOT NULL DEFAULT '',
			refresh_expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rebind rewrites ? placeholders to Postgres $n placeholders. Queries passed
// here never contain ? inside string literals.
func rebind(query string) string {
	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func requireAffected(tag pgconn.CommandTag, missing error) error {
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

func utc(value time.Time) time.Time {
	return value.UTC()
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	t := value.UTC()
	return &t
}

func fromOptionalTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}
