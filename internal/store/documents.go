package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

const documentColumns = `id, title, content, type, created_by, last_edited_by, tags, task_id, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*models.Document, error) {
	d := &models.Document{}
	var lastEditedBy, tags, taskID sql.NullString
	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Type, &d.CreatedBy,
		&lastEditedBy, &tags, &taskID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastEditedBy.Valid {
		d.LastEditedBy = lastEditedBy.String
	}
	d.Tags = unmarshalTags(tags)
	if taskID.Valid {
		d.TaskID = taskID.String
	}
	return d, nil
}

// CreateDocumentUnit inserts a new document together with its creation
// activity in a single transaction.
func (s *Store) CreateDocumentUnit(d *models.Document, act *models.Activity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	d.ID = newID()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err = tx.Exec(
		`INSERT INTO documents (id, title, content, type, created_by, last_edited_by, tags, task_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.Type, d.CreatedBy, nullString(d.LastEditedBy),
		marshalTags(d.Tags), nullString(d.TaskID), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if err := insertActivity(tx, act); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DocumentPatch carries the optional field updates for UpdateDocument. Nil
// fields are left untouched.
type DocumentPatch struct {
	Title   *string
	Content *string
}

// UpdateDocument applies the patch and records the editor.
func (s *Store) UpdateDocument(id string, patch DocumentPatch, editedBy string) error {
	set := `last_edited_by = ?, updated_at = ?`
	args := []interface{}{editedBy, time.Now().UTC()}
	if patch.Title != nil {
		set += `, title = ?`
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		set += `, content = ?`
		args = append(args, *patch.Content)
	}
	args = append(args, id)

	_, err := s.db.Exec(`UPDATE documents SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID. Returns (nil, nil) if it does not
// exist.
func (s *Store) GetDocument(id string) (*models.Document, error) {
	d, err := scanDocument(s.db.QueryRow(
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return d, nil
}

// ListDocuments returns documents newest first, optionally filtered by type.
func (s *Store) ListDocuments(typ models.DocumentType) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []interface{}
	if typ != "" {
		query += ` WHERE type = ?`
		args = append(args, typ)
	}
	query += ` ORDER BY created_at DESC`
	return s.queryDocuments(query, args...)
}

// DocumentsByTask returns the documents attached to a task.
func (s *Store) DocumentsByTask(taskID string) ([]models.Document, error) {
	return s.queryDocuments(
		`SELECT `+documentColumns+` FROM documents WHERE task_id = ? ORDER BY created_at DESC`, taskID)
}

func (s *Store) queryDocuments(query string, args ...interface{}) ([]models.Document, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}
