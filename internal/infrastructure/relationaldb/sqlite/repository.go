// Package sqlite provides SQLite implementations of the SuggestionDB and
// EntityStore interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// listCacheTTL bounds how long a cached suggestion list stays valid.
const listCacheTTL = 30 * time.Second

// Repository implements ports.SuggestionDB and ports.EntityStore using SQLite.
type Repository struct {
	db    *sql.DB
	path  string
	cache *listCache
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:    db,
		path:  cfg.Path,
		cache: newListCache(listCacheTTL),
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Entities (named subjects that can participate in relationships)
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		saga_id TEXT NOT NULL,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		attributes TEXT,
		importance REAL NOT NULL DEFAULT 0,
		timeline_anchor REAL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(saga_id, normalized_name)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_saga ON entities(saga_id);
	CREATE INDEX IF NOT EXISTS idx_entities_normalized ON entities(saga_id, normalized_name);

	-- Entity relationships (connects two entities)
	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		saga_id TEXT NOT NULL,
		source_entity_id TEXT NOT NULL,
		target_entity_id TEXT NOT NULL,
		type TEXT NOT NULL,
		strength INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_saga ON relationships(saga_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_entity_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_entity_id);

	-- Relationship suggestions (one row per saga/source/target/type, never deleted)
	CREATE TABLE IF NOT EXISTS suggestions (
		id TEXT PRIMARY KEY,
		saga_id TEXT NOT NULL,
		source_entity_id TEXT NOT NULL,
		target_entity_id TEXT NOT NULL,
		suggested_type TEXT NOT NULL,
		confidence REAL NOT NULL,
		strength INTEGER NOT NULL,
		priority_score REAL NOT NULL,
		reasoning TEXT,
		features TEXT NOT NULL,
		status TEXT NOT NULL,
		created_relationship_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(saga_id, source_entity_id, target_entity_id, suggested_type)
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_saga_status ON suggestions(saga_id, status);
	CREATE INDEX IF NOT EXISTS idx_suggestions_priority ON suggestions(saga_id, priority_score DESC, id ASC);

	-- Feedback log (append-only reviewer decisions with feature snapshots)
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		suggestion_id TEXT NOT NULL,
		action TEXT NOT NULL,
		corrected_type TEXT,
		corrected_strength INTEGER,
		note TEXT,
		features TEXT NOT NULL,
		decision_latency_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(suggestion_id) REFERENCES suggestions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_suggestion ON feedback(suggestion_id);

	-- Learned weights (one row per scope/feature/relation, versioned for CAS)
	CREATE TABLE IF NOT EXISTS weights (
		saga_id TEXT NOT NULL,
		feature_type TEXT NOT NULL,
		relation_type TEXT NOT NULL DEFAULT '',
		weight REAL NOT NULL,
		accuracy_score REAL NOT NULL DEFAULT 0,
		accepted_count INTEGER NOT NULL DEFAULT 0,
		rejected_count INTEGER NOT NULL DEFAULT 0,
		sample_count INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(saga_id, feature_type, relation_type)
	);

	-- Batch generation jobs (durable, observed by polling)
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		saga_id TEXT NOT NULL,
		status TEXT NOT NULL,
		pairs_total INTEGER NOT NULL DEFAULT 0,
		pairs_processed INTEGER NOT NULL DEFAULT 0,
		suggestions_created INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_saga ON jobs(saga_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(saga_id, status);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Suggestion operations

// UpsertSuggestion inserts a suggestion, or is a no-op when one already exists
// for the (saga, source, target, type) tuple. Re-running generation never
// duplicates. Returns whether a row was created; on no-op the existing row is
// loaded into s.
func (r *Repository) UpsertSuggestion(ctx context.Context, s *entities.Suggestion) (bool, error) {
	if s.SourceEntityID == s.TargetEntityID {
		return false, fmt.Errorf("%w: suggestion source equals target (%s)", entities.ErrValidation, s.SourceEntityID)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return false, fmt.Errorf("%w: confidence %.2f out of range", entities.ErrValidation, s.Confidence)
	}

	features, err := json.Marshal(s.Features)
	if err != nil {
		return false, fmt.Errorf("marshaling features: %w", err)
	}

	query := `
		INSERT INTO suggestions (
			id, saga_id, source_entity_id, target_entity_id, suggested_type,
			confidence, strength, priority_score, reasoning, features, status,
			created_relationship_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(saga_id, source_entity_id, target_entity_id, suggested_type) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.SagaID,
		s.SourceEntityID,
		s.TargetEntityID,
		string(s.SuggestedType),
		s.Confidence,
		s.Strength,
		s.PriorityScore,
		s.Reasoning,
		string(features),
		string(s.Status),
		s.CreatedRelationshipID,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upserting suggestion: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.findSuggestionByTuple(ctx, s.SagaID, s.SourceEntityID, s.TargetEntityID, s.SuggestedType)
		if err != nil {
			return false, err
		}
		*s = *existing
		return false, nil
	}

	r.cache.InvalidateScope(s.SagaID)
	return true, nil
}

const suggestionColumns = `id, saga_id, source_entity_id, target_entity_id, suggested_type,
	confidence, strength, priority_score, reasoning, features, status,
	created_relationship_id, created_at, updated_at`

// FindSuggestionByID returns a suggestion or entities.ErrNotFound.
func (r *Repository) FindSuggestionByID(ctx context.Context, id string) (*entities.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	s, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// findSuggestionByTuple loads a suggestion by its unique tuple.
func (r *Repository) findSuggestionByTuple(ctx context.Context, sagaID, source, target string, rt entities.RelationType) (*entities.Suggestion, error) {
	query := `
		SELECT ` + suggestionColumns + `
		FROM suggestions
		WHERE saga_id = ? AND source_entity_id = ? AND target_entity_id = ? AND suggested_type = ?
	`
	row := r.db.QueryRowContext(ctx, query, sagaID, source, target, string(rt))

	s, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion for pair (%s, %s): %w", source, target, entities.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSuggestions returns suggestions for a saga ordered by priority_score
// descending then id ascending, so paginated results are reproducible under
// ties. Results are briefly cached per (saga, filter, page) and invalidated on
// any write touching the saga.
func (r *Repository) ListSuggestions(ctx context.Context, sagaID string, filter ports.SuggestionFilter, page ports.Page) ([]*entities.Suggestion, error) {
	key := listCacheKey(sagaID, filter, page)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE saga_id = ?`
	args := []any{sagaID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND suggested_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence >= ?`
		args = append(args, filter.MinConfidence)
	}

	query += ` ORDER BY priority_score DESC, id ASC`

	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.Suggestion, 0, page.Limit)
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.cache.Set(key, result)
	return result, nil
}

// CountSuggestions counts suggestions matching the filter.
func (r *Repository) CountSuggestions(ctx context.Context, sagaID string, filter ports.SuggestionFilter) (int, error) {
	query := `SELECT COUNT(*) FROM suggestions WHERE saga_id = ?`
	args := []any{sagaID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND suggested_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence >= ?`
		args = append(args, filter.MinConfidence)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting suggestions: %w", err)
	}
	return count, nil
}

// ListSuggestedPairs returns the canonical "source|target" keys of every pair
// holding a non-dismissed suggestion of any type in the saga.
func (r *Repository) ListSuggestedPairs(ctx context.Context, sagaID string) (map[string]bool, error) {
	query := `
		SELECT DISTINCT source_entity_id, target_entity_id
		FROM suggestions
		WHERE saga_id = ? AND status != ?
	`
	rows, err := r.db.QueryContext(ctx, query, sagaID, string(entities.StatusDismissed))
	if err != nil {
		return nil, fmt.Errorf("querying suggested pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]bool)
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("scanning pair: %w", err)
		}
		pairs[source+"|"+target] = true
	}
	return pairs, rows.Err()
}

// Feedback operations

// RecordFeedback atomically appends the feedback entry, transitions the
// suggestion from pending to newStatus, and, when rel is non-nil, materializes
// the relationship. A suggestion no longer pending fails with
// entities.ErrConflict and nothing commits. Returns the relationship ID, if
// one was created.
func (r *Repository) RecordFeedback(ctx context.Context, fb *entities.Feedback, newStatus entities.SuggestionStatus, rel *entities.Relationship) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sagaID, status string
	err = tx.QueryRowContext(ctx,
		`SELECT saga_id, status FROM suggestions WHERE id = ?`, fb.SuggestionID,
	).Scan(&sagaID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("suggestion %s: %w", fb.SuggestionID, entities.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading suggestion: %w", err)
	}

	var relID *string
	if rel != nil {
		if rel.ID == "" {
			rel.ID = generateUUID()
		}
		relID = &rel.ID
	}

	// Status transition guarded on pending: under two racing submissions
	// exactly one update matches, the loser sees zero rows and conflicts.
	result, err := tx.ExecContext(ctx, `
		UPDATE suggestions
		SET status = ?, created_relationship_id = COALESCE(?, created_relationship_id), updated_at = ?
		WHERE id = ? AND status = ?
	`, string(newStatus), relID, timeNow(), fb.SuggestionID, string(entities.StatusPending))
	if err != nil {
		return "", fmt.Errorf("transitioning suggestion: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return "", fmt.Errorf("suggestion %s already actioned (%s): %w", fb.SuggestionID, status, entities.ErrConflict)
	}

	features, err := json.Marshal(fb.Features)
	if err != nil {
		return "", fmt.Errorf("marshaling feature snapshot: %w", err)
	}

	var correctedType *string
	if fb.CorrectedType != nil {
		ct := string(*fb.CorrectedType)
		correctedType = &ct
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback (id, suggestion_id, action, corrected_type, corrected_strength, note, features, decision_latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fb.ID,
		fb.SuggestionID,
		string(fb.Action),
		correctedType,
		fb.CorrectedStrength,
		fb.Note,
		string(features),
		fb.DecisionLatency.Milliseconds(),
		fb.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting feedback: %w", err)
	}

	if rel != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO relationships (id, saga_id, source_entity_id, target_entity_id, type, strength, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rel.ID, rel.SagaID, rel.SourceEntityID, rel.TargetEntityID, string(rel.Type), rel.Strength, rel.CreatedAt)
		if err != nil {
			return "", fmt.Errorf("materializing relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing feedback: %w", err)
	}

	r.cache.InvalidateScope(sagaID)

	if relID != nil {
		return *relID, nil
	}
	return "", nil
}

// ListFeedbackBySuggestion returns feedback entries oldest first.
func (r *Repository) ListFeedbackBySuggestion(ctx context.Context, suggestionID string) ([]entities.Feedback, error) {
	query := `
		SELECT id, suggestion_id, action, corrected_type, corrected_strength, note, features, decision_latency_ms, created_at
		FROM feedback
		WHERE suggestion_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	result := make([]entities.Feedback, 0, 4)
	for rows.Next() {
		var fb entities.Feedback
		var correctedType sql.NullString
		var correctedStrength sql.NullInt64
		var note sql.NullString
		var features string
		var latencyMS int64

		if err := rows.Scan(
			&fb.ID,
			&fb.SuggestionID,
			&fb.Action,
			&correctedType,
			&correctedStrength,
			&note,
			&features,
			&latencyMS,
			&fb.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}

		if correctedType.Valid {
			ct := entities.RelationType(correctedType.String)
			fb.CorrectedType = &ct
		}
		if correctedStrength.Valid {
			cs := int(correctedStrength.Int64)
			fb.CorrectedStrength = &cs
		}
		fb.Note = note.String
		fb.DecisionLatency = time.Duration(latencyMS) * time.Millisecond

		if err := json.Unmarshal([]byte(features), &fb.Features); err != nil {
			return nil, fmt.Errorf("unmarshaling feature snapshot: %w", err)
		}

		result = append(result, fb)
	}
	return result, rows.Err()
}

// scanner matches sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSuggestion scans one suggestion row.
func scanSuggestion(row scanner) (*entities.Suggestion, error) {
	var s entities.Suggestion
	var reasoning sql.NullString
	var features string
	var relID sql.NullString

	err := row.Scan(
		&s.ID,
		&s.SagaID,
		&s.SourceEntityID,
		&s.TargetEntityID,
		&s.SuggestedType,
		&s.Confidence,
		&s.Strength,
		&s.PriorityScore,
		&reasoning,
		&features,
		&s.Status,
		&relID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning suggestion: %w", err)
	}

	s.Reasoning = reasoning.String
	if relID.Valid {
		s.CreatedRelationshipID = &relID.String
	}

	if err := json.Unmarshal([]byte(features), &s.Features); err != nil {
		return nil, fmt.Errorf("unmarshaling features: %w", err)
	}

	return &s, nil
}
