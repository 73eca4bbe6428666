package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Template operations

// CreateTemplate writes the template and its variables in one transaction.
func (s *SQLiteStore) CreateTemplate(ctx context.Context, tpl *types.Template) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertTemplateWithQuerier(ctx, tx, tpl); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTemplateIfUnique re-checks the duplicate floor against the current
// store contents inside the write transaction, immediately before commit.
// When a near-duplicate exists, the earliest-committed one wins and the new
// template is discarded.
func (s *SQLiteStore) CreateTemplateIfUnique(ctx context.Context, tpl *types.Template, floor float64) (*types.Template, bool, error) {
	if len(tpl.Embedding) == 0 {
		return nil, false, fmt.Errorf("%w: template embedding is required for duplicate check", types.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	dupID, err := findDuplicateWithQuerier(ctx, tx, tpl.Embedding, floor)
	if err != nil {
		return nil, false, err
	}
	if dupID != "" {
		winner, err := s.getTemplateWithQuerier(ctx, tx, dupID)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}

	if err := s.insertTemplateWithQuerier(ctx, tx, tpl); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return tpl, true, nil
}

// insertTemplateWithQuerier writes the template row and its variable rows.
func (s *SQLiteStore) insertTemplateWithQuerier(ctx context.Context, q querier, tpl *types.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	tags, err := json.Marshal(tpl.SimilarityTags)
	if err != nil {
		return fmt.Errorf("failed to encode similarity tags: %w", err)
	}

	query := `
		INSERT INTO templates (id, name, doc_type, jurisdiction, description, body,
		                       similarity_tags, embedding, dimension, source, source_url,
		                       created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.DocType, tpl.Jurisdiction, tpl.Description, tpl.Body,
		string(tags), serializeVector(tpl.Embedding), len(tpl.Embedding),
		string(tpl.Source), tpl.SourceURL, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	varQuery := `
		INSERT INTO variables (template_id, key, label, description, example,
		                       required, dtype, regex, enum_values, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range tpl.Variables {
		v := &tpl.Variables[i]
		enums, err := json.Marshal(v.EnumValues)
		if err != nil {
			return fmt.Errorf("failed to encode enum values: %w", err)
		}
		_, err = q.ExecContext(ctx, varQuery,
			tpl.ID, v.Key, v.Label, v.Description, v.Example,
			v.Required, string(v.DType), v.Regex, string(enums), i)
		if err != nil {
			return fmt.Errorf("failed to create variable %s: %w", v.Key, err)
		}
	}
	return nil
}

// getTemplateWithQuerier loads a template and its variables.
func (s *SQLiteStore) getTemplateWithQuerier(ctx context.Context, q querier, id string) (*types.Template, error) {
	query := `
		SELECT id, name, doc_type, jurisdiction, description, body,
		       similarity_tags, embedding, source, source_url, created_at, updated_at
		FROM templates
		WHERE id = ?
	`
	var tpl types.Template
	var tags sql.NullString
	var embedding []byte
	var sourceURL sql.NullString
	var source string
	err := q.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID, &tpl.Name, &tpl.DocType, &tpl.Jurisdiction, &tpl.Description, &tpl.Body,
		&tags, &embedding, &source, &sourceURL, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tpl.Source = types.Provenance(source)
	if sourceURL.Valid {
		tpl.SourceURL = sourceURL.String
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &tpl.SimilarityTags); err != nil {
			return nil, fmt.Errorf("failed to decode similarity tags: %w", err)
		}
	}
	tpl.Embedding = deserializeVector(embedding)

	vars, err := s.listVariablesWithQuerier(ctx, q, id)
	if err != nil {
		return nil, err
	}
	tpl.Variables = vars
	return &tpl, nil
}

// GetTemplate retrieves a template with its variables by ID
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*types.Template, error) {
	return s.getTemplateWithQuerier(ctx, s.db, id)
}

// listVariablesWithQuerier loads a template's variables in declaration order.
func (s *SQLiteStore) listVariablesWithQuerier(ctx context.Context, q querier, templateID string) ([]types.Variable, error) {
	query := `
		SELECT key, label, description, example, required, dtype, regex, enum_values
		FROM variables
		WHERE template_id = ?
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vars []types.Variable
	for rows.Next() {
		var v types.Variable
		var dtype string
		var enums sql.NullString
		if err := rows.Scan(&v.Key, &v.Label, &v.Description, &v.Example,
			&v.Required, &dtype, &v.Regex, &enums); err != nil {
			return nil, err
		}
		v.DType = types.VarType(dtype)
		if enums.Valid && enums.String != "" {
			if err := json.Unmarshal([]byte(enums.String), &v.EnumValues); err != nil {
				return nil, fmt.Errorf("failed to decode enum values: %w", err)
			}
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

// DeleteTemplate removes a template; variables and instances cascade.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ListTemplates returns templates newest first, without embeddings or variables.
func (s *SQLiteStore) ListTemplates(ctx context.Context, limit, offset int) ([]*types.Template, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, doc_type, jurisdiction, description, source, source_url, created_at, updated_at
		FROM templates
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []*types.Template
	for rows.Next() {
		var tpl types.Template
		var source string
		var sourceURL sql.NullString
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.DocType, &tpl.Jurisdiction,
			&tpl.Description, &source, &sourceURL, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		tpl.Source = types.Provenance(source)
		if sourceURL.Valid {
			tpl.SourceURL = sourceURL.String
		}
		templates = append(templates, &tpl)
	}
	return templates, rows.Err()
}

// NearestNeighbors returns the k most similar templates to the query vector.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]VectorResult, error) {
	return nearestWithQuerier(ctx, s.db, vector, k)
}

// Instance operations

// CreateInstance persists a rendered draft instance
func (s *SQLiteStore) CreateInstance(ctx context.Context, inst *types.Instance) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	answers, err := json.Marshal(inst.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	query := `
		INSERT INTO instances (id, template_id, user_query, answers, draft_md, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		inst.ID, inst.TemplateID, inst.UserQuery, string(answers), inst.DraftMD, inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance by ID
func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*types.Instance, error) {
	query := `
		SELECT id, template_id, user_query, answers, draft_md, created_at
		FROM instances
		WHERE id = ?
	`
	inst, err := scanInstance(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	return inst, err
}

// ListInstancesByTemplate returns a template's instances, newest first.
func (s *SQLiteStore) ListInstancesByTemplate(ctx context.Context, templateID string) ([]*types.Instance, error) {
	query := `
		SELECT id, template_id, user_query, answers, draft_md, created_at
		FROM instances
		WHERE template_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var instances []*types.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for single-row scans
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row scanner) (*types.Instance, error) {
	var inst types.Instance
	var answers sql.NullString
	err := row.Scan(&inst.ID, &inst.TemplateID, &inst.UserQuery, &answers, &inst.DraftMD, &inst.CreatedAt)
	if err != nil {
		return nil, err
	}
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &inst.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
	}
	return &inst, nil
}

// Status returns store statistics and health
func (s *SQLiteStore) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Health: HealthStatus{VectorFastPath: VectorExtensionAvailable},
	}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM templates", &status.TemplatesCount},
		{"SELECT COUNT(*) FROM variables", &status.VariablesCount},
		{"SELECT COUNT(*) FROM instances", &status.InstancesCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return status, fmt.Errorf("failed to count: %w", err)
		}
	}
	status.Health.DatabaseAccessible = true
	return status, nil
}
