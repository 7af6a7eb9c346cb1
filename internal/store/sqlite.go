package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/privacy-assess/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS questions (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	options    TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS suggestions (
	code        TEXT PRIMARY KEY,
	positive    TEXT NOT NULL,
	negative    TEXT NOT NULL,
	tools       TEXT NOT NULL DEFAULT '[]',
	methodology TEXT NOT NULL DEFAULT '[]',
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS admin_users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS subscribers (
	id               TEXT PRIMARY KEY,
	email            TEXT NOT NULL UNIQUE,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	last_reminded_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_questions_position ON questions(position);
CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Questions ---

const sqliteQuestionCols = `id, text, position, status, options, created_at, updated_at`

func (s *SQLiteStore) ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	query := `SELECT ` + sqliteQuestionCols + ` FROM questions WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY position, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close() //nolint:errcheck

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, eris.Wrap(rows.Err(), "sqlite: list questions iterate")
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteQuestionCols+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, notFound("question", id)
	}
	return q, err
}

func (s *SQLiteStore) CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	now := time.Now().UTC()
	q.ID = uuid.New().String()
	q.CreatedAt = now
	prepareQuestion(&q, now)

	if q.Position <= 0 {
		err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM questions`).Scan(&q.Position)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: next question position")
		}
	}

	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal options")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, text, position, status, options, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Text, q.Position, string(q.Status), string(optionsJSON), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert question")
	}
	return &q, nil
}

func (s *SQLiteStore) UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	prepareQuestion(&q, time.Now().UTC())
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal options")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET text = ?, status = ?, options = ?, updated_at = ? WHERE id = ?`,
		q.Text, string(q.Status), string(optionsJSON), q.UpdatedAt, q.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update question %s", q.ID)
	}
	if err := checkRowsAffected(res, "question", q.ID); err != nil {
		return nil, err
	}
	return s.GetQuestion(ctx, q.ID)
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete question %s", id)
	}
	return checkRowsAffected(res, "question", id)
}

func (s *SQLiteStore) ReorderQuestions(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin reorder")
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT id FROM questions`)
	if err != nil {
		return eris.Wrap(err, "sqlite: reorder list ids")
	}
	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close() //nolint:errcheck
			return eris.Wrap(err, "sqlite: reorder scan id")
		}
		existing = append(existing, id)
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: reorder iterate")
	}

	if err := checkOrder(existing, ids); err != nil {
		return err
	}

	now := time.Now().UTC()
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE questions SET position = ?, updated_at = ? WHERE id = ?`, i+1, now, id,
		); err != nil {
			return eris.Wrapf(err, "sqlite: reorder question %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reorder")
}

// --- Suggestions ---

func (s *SQLiteStore) ListSuggestions(ctx context.Context) ([]model.SuggestionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, positive, negative, tools, methodology, updated_at FROM suggestions ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suggestions")
	}
	defer rows.Close() //nolint:errcheck

	entries := []model.SuggestionEntry{}
	for rows.Next() {
		e, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list suggestions iterate")
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, code model.ConcernCode) (*model.SuggestionEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, positive, negative, tools, methodology, updated_at FROM suggestions WHERE code = ?`, string(code))
	e, err := scanSuggestion(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, notFound("suggestion", string(code))
	}
	return e, err
}

func (s *SQLiteStore) UpsertSuggestion(ctx context.Context, entry model.SuggestionEntry) error {
	normalizeEntry(&entry, time.Now().UTC())
	toolsJSON, err := json.Marshal(entry.Tools)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tools")
	}
	methodJSON, err := json.Marshal(entry.Methodology)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal methodology")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suggestions (code, positive, negative, tools, methodology, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET positive = excluded.positive, negative = excluded.negative,
		   tools = excluded.tools, methodology = excluded.methodology, updated_at = excluded.updated_at`,
		string(entry.Code), entry.Positive, entry.Negative, string(toolsJSON), string(methodJSON), entry.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert suggestion %s", entry.Code)
}

func (s *SQLiteStore) DeleteSuggestion(ctx context.Context, code model.ConcernCode) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suggestions WHERE code = ?`, string(code))
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete suggestion %s", code)
	}
	return checkRowsAffected(res, "suggestion", string(code))
}

// --- Admins ---

func (s *SQLiteStore) CreateAdmin(ctx context.Context, username, passwordHash string) (*model.AdminUser, error) {
	u := model.AdminUser{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return nil, eris.Wrapf(ErrConflict, "admin %s", username)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert admin")
	}
	return &u, nil
}

func (s *SQLiteStore) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	var u model.AdminUser
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM admin_users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, notFound("admin", username)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get admin %s", username)
	}
	return &u, nil
}

// --- Subscribers ---

func (s *SQLiteStore) CreateSubscriber(ctx context.Context, email string) (*model.Subscriber, error) {
	sub := model.Subscriber{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (id, email, created_at) VALUES (?, ?, ?)`,
		sub.ID, sub.Email, sub.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return nil, eris.Wrapf(ErrConflict, "subscriber %s", email)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert subscriber")
	}
	return &sub, nil
}

func (s *SQLiteStore) DeleteSubscriber(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete subscriber %s", id)
	}
	return checkRowsAffected(res, "subscriber", id)
}

// ListDueSubscribers pages due subscribers in id order, starting after
// afterID. Due-ness is filtered in Go: SQLite keeps timestamps as text, which
// does not compare reliably across fractional-second precisions.
func (s *SQLiteStore) ListDueSubscribers(ctx context.Context, dueBefore time.Time, afterID string, limit int) ([]model.Subscriber, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, created_at, last_reminded_at FROM subscribers
		 WHERE id > ? ORDER BY id`, afterID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subscribers")
	}
	defer rows.Close() //nolint:errcheck

	due := []model.Subscriber{}
	for rows.Next() {
		var sub model.Subscriber
		var last sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.CreatedAt, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subscriber")
		}
		if last.Valid {
			t := last.Time
			sub.LastRemindedAt = &t
		}
		if sub.ReminderBase().After(dueBefore) {
			continue
		}
		due = append(due, sub)
		if len(due) == limit {
			break
		}
	}
	return due, eris.Wrap(rows.Err(), "sqlite: list subscribers iterate")
}

func (s *SQLiteStore) MarkReminded(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subscribers SET last_reminded_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark reminded %s", id)
	}
	return checkRowsAffected(res, "subscriber", id)
}

// --- Helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanQuestion(row scannable) (*model.Question, error) {
	var q model.Question
	var status, optionsJSON string
	if err := row.Scan(&q.ID, &q.Text, &q.Position, &status, &optionsJSON, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan question")
	}
	q.Status = model.QuestionStatus(status)
	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal options for %s", q.ID)
	}
	return &q, nil
}

func scanSuggestion(row scannable) (*model.SuggestionEntry, error) {
	var e model.SuggestionEntry
	var code, toolsJSON, methodJSON string
	if err := row.Scan(&code, &e.Positive, &e.Negative, &toolsJSON, &methodJSON, &e.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan suggestion")
	}
	e.Code = model.ConcernCode(code)
	if err := json.Unmarshal([]byte(toolsJSON), &e.Tools); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal tools for %s", code)
	}
	if err := json.Unmarshal([]byte(methodJSON), &e.Methodology); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal methodology for %s", code)
	}
	return &e, nil
}
