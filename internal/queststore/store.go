package queststore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"flowquest/internal/config"
)

// Status tracks a quest through its lifecycle.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusVerified Status = "verified"
	StatusExported Status = "exported"
)

// Quest is one persisted quest row. Graph and receipt payloads are stored as
// JSON blobs; the graph blob round-trips through shotgraph.Decode.
type Quest struct {
	ID          string
	Template    string
	Status      Status
	InputsJSON  string
	GraphJSON   string
	ReceiptJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store manages quest persistence backed by SQLite. A file lock on the data
// directory keeps concurrent processes off the same database.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the quest database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "quests.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire quest db lock: %w", err)
	}
	if !locked {
		return nil, errors.New("quest database is locked by another process")
	}

	dbPath := cfg.QuestDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS quests (
            id TEXT PRIMARY KEY,
            template TEXT NOT NULL,
            status TEXT NOT NULL,
            inputs_json TEXT,
            graph_json TEXT NOT NULL,
            receipt_json TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`)
	if err != nil {
		return fmt.Errorf("create quests table: %w", err)
	}
	return nil
}

// Close releases the database connection and the directory lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// Save upserts a quest row, refreshing its update timestamp.
func (s *Store) Save(ctx context.Context, quest *Quest) error {
	if quest == nil {
		return errors.New("quest is nil")
	}
	now := time.Now().UTC()
	if quest.CreatedAt.IsZero() {
		quest.CreatedAt = now
	}
	quest.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO quests (id, template, status, inputs_json, graph_json, receipt_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             template = excluded.template,
             status = excluded.status,
             inputs_json = excluded.inputs_json,
             graph_json = excluded.graph_json,
             receipt_json = excluded.receipt_json,
             updated_at = excluded.updated_at`,
		quest.ID,
		quest.Template,
		quest.Status,
		nullableString(quest.InputsJSON),
		quest.GraphJSON,
		nullableString(quest.ReceiptJSON),
		quest.CreatedAt.Format(time.RFC3339Nano),
		quest.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save quest: %w", err)
	}
	return nil
}

// Get fetches a quest by id, returning nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Quest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	quest, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return quest, nil
}

// List returns quests filtered by status set, or all quests when no status is given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Quest, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + questColumns + ` FROM quests`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var quests []*Quest
	for rows.Next() {
		quest, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, quest)
	}
	return quests, rows.Err()
}

// Remove deletes a quest by id.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete quest: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of quests grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM quests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("quest stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const questColumns = "id, template, status, inputs_json, graph_json, receipt_json, created_at, updated_at"

func scanQuest(scanner interface{ Scan(dest ...any) error }) (*Quest, error) {
	var (
		id         string
		template   string
		statusStr  string
		inputs     sql.NullString
		graph      string
		receiptRaw sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &template, &statusStr, &inputs, &graph, &receiptRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	quest := &Quest{
		ID:          id,
		Template:    template,
		Status:      Status(statusStr),
		InputsJSON:  inputs.String,
		GraphJSON:   graph,
		ReceiptJSON: receiptRaw.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		quest.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		quest.UpdatedAt = updated
	}
	return quest, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
