package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/privacy-assess/internal/db"
	"github.com/sells-group/privacy-assess/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS questions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	text       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	options    JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS suggestions (
	code        TEXT PRIMARY KEY,
	positive    TEXT NOT NULL,
	negative    TEXT NOT NULL,
	tools       JSONB NOT NULL DEFAULT '[]'::jsonb,
	methodology JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS admin_users (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscribers (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email            TEXT NOT NULL UNIQUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_reminded_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_questions_position ON questions(position);
CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status);
CREATE INDEX IF NOT EXISTS idx_subscribers_due ON subscribers(COALESCE(last_reminded_at, created_at));
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Questions ---

const pgQuestionCols = `id, text, position, status, options, created_at, updated_at`

func (s *PostgresStore) ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	query := `SELECT ` + pgQuestionCols + ` FROM questions`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY position, created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanPgQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: list questions iterate")
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgQuestionCols+` FROM questions WHERE id = $1`, id)
	q, err := scanPgQuestion(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, notFound("question", id)
	}
	return q, err
}

func (s *PostgresStore) CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	now := time.Now().UTC()
	q.ID = uuid.New().String()
	q.CreatedAt = now
	prepareQuestion(&q, now)

	if q.Position <= 0 {
		err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM questions`).Scan(&q.Position)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: next question position")
		}
	}

	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal options")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, text, position, status, options, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.Text, q.Position, string(q.Status), optionsJSON, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert question")
	}
	return &q, nil
}

func (s *PostgresStore) UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	prepareQuestion(&q, time.Now().UTC())
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal options")
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE questions SET text = $1, status = $2, options = $3, updated_at = $4 WHERE id = $5
		 RETURNING `+pgQuestionCols,
		q.Text, string(q.Status), optionsJSON, q.UpdatedAt, q.ID,
	)
	updated, err := scanPgQuestion(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, notFound("question", q.ID)
	}
	return updated, err
}

func (s *PostgresStore) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete question %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("question", id)
	}
	return nil
}

func (s *PostgresStore) ReorderQuestions(ctx context.Context, ids []string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM questions FOR UPDATE`)
		if err != nil {
			return eris.Wrap(err, "postgres: reorder list ids")
		}
		existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return eris.Wrap(err, "postgres: reorder collect ids")
		}
		if err := checkOrder(existing, ids); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE questions q SET position = o.ord, updated_at = now()
			 FROM unnest($1::text[]) WITH ORDINALITY AS o(id, ord)
			 WHERE q.id = o.id`,
			ids,
		)
		return eris.Wrap(err, "postgres: reorder update positions")
	})
}

// --- Suggestions ---

func (s *PostgresStore) ListSuggestions(ctx context.Context) ([]model.SuggestionEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, positive, negative, tools, methodology, updated_at FROM suggestions ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suggestions")
	}
	defer rows.Close()

	entries := []model.SuggestionEntry{}
	for rows.Next() {
		e, err := scanPgSuggestion(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list suggestions iterate")
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, code model.ConcernCode) (*model.SuggestionEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT code, positive, negative, tools, methodology, updated_at FROM suggestions WHERE code = $1`, string(code))
	e, err := scanPgSuggestion(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, notFound("suggestion", string(code))
	}
	return e, err
}

func (s *PostgresStore) UpsertSuggestion(ctx context.Context, entry model.SuggestionEntry) error {
	normalizeEntry(&entry, time.Now().UTC())
	toolsJSON, err := json.Marshal(entry.Tools)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tools")
	}
	methodJSON, err := json.Marshal(entry.Methodology)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal methodology")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO suggestions (code, positive, negative, tools, methodology, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (code) DO UPDATE SET positive = EXCLUDED.positive, negative = EXCLUDED.negative,
		   tools = EXCLUDED.tools, methodology = EXCLUDED.methodology, updated_at = EXCLUDED.updated_at`,
		string(entry.Code), entry.Positive, entry.Negative, toolsJSON, methodJSON, entry.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert suggestion %s", entry.Code)
}

func (s *PostgresStore) DeleteSuggestion(ctx context.Context, code model.ConcernCode) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM suggestions WHERE code = $1`, string(code))
	if err != nil {
		return eris.Wrapf(err, "postgres: delete suggestion %s", code)
	}
	if tag.RowsAffected() == 0 {
		return notFound("suggestion", string(code))
	}
	return nil
}

// --- Admins ---

func (s *PostgresStore) CreateAdmin(ctx context.Context, username, passwordHash string) (*model.AdminUser, error) {
	u := model.AdminUser{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin_users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return nil, eris.Wrapf(ErrConflict, "admin %s", username)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert admin")
	}
	return &u, nil
}

func (s *PostgresStore) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	var u model.AdminUser
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admin_users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, notFound("admin", username)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get admin %s", username)
	}
	return &u, nil
}

// --- Subscribers ---

func (s *PostgresStore) CreateSubscriber(ctx context.Context, email string) (*model.Subscriber, error) {
	sub := model.Subscriber{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscribers (id, email, created_at) VALUES ($1, $2, $3)`,
		sub.ID, sub.Email, sub.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return nil, eris.Wrapf(ErrConflict, "subscriber %s", email)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert subscriber")
	}
	return &sub, nil
}

func (s *PostgresStore) DeleteSubscriber(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete subscriber %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("subscriber", id)
	}
	return nil
}

// ListDueSubscribers pages due subscribers in id order, starting after
// afterID. An empty afterID starts from the beginning.
func (s *PostgresStore) ListDueSubscribers(ctx context.Context, dueBefore time.Time, afterID string, limit int) ([]model.Subscriber, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, created_at, last_reminded_at FROM subscribers
		 WHERE COALESCE(last_reminded_at, created_at) <= $1 AND id > $2
		 ORDER BY id LIMIT $3`,
		dueBefore, afterID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list due subscribers")
	}
	defer rows.Close()

	due := []model.Subscriber{}
	for rows.Next() {
		var sub model.Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.CreatedAt, &sub.LastRemindedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subscriber")
		}
		due = append(due, sub)
	}
	return due, eris.Wrap(rows.Err(), "postgres: list due subscribers iterate")
}

func (s *PostgresStore) MarkReminded(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE subscribers SET last_reminded_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark reminded %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("subscriber", id)
	}
	return nil
}

func scanPgQuestion(row pgx.Row) (*model.Question, error) {
	var q model.Question
	var status string
	var optionsJSON []byte
	if err := row.Scan(&q.ID, &q.Text, &q.Position, &status, &optionsJSON, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan question")
	}
	q.Status = model.QuestionStatus(status)
	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal options for %s", q.ID)
	}
	return &q, nil
}

func scanPgSuggestion(row pgx.Row) (*model.SuggestionEntry, error) {
	var e model.SuggestionEntry
	var code string
	var toolsJSON, methodJSON []byte
	if err := row.Scan(&code, &e.Positive, &e.Negative, &toolsJSON, &methodJSON, &e.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan suggestion")
	}
	e.Code = model.ConcernCode(code)
	if err := json.Unmarshal(toolsJSON, &e.Tools); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal tools for %s", code)
	}
	if err := json.Unmarshal(methodJSON, &e.Methodology); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal methodology for %s", code)
	}
	return &e, nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
