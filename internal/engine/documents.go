package engine

import (
	"fmt"

	"github.com/groundctl/groundctl/internal/models"
	"github.com/groundctl/groundctl/internal/store"
)

// CreateDocumentParams are the inputs for CreateDocument.
type CreateDocumentParams struct {
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Type      models.DocumentType `json:"type"`
	CreatedBy string              `json:"created_by"`
	Tags      []string            `json:"tags,omitempty"`
	TaskID    string              `json:"task_id,omitempty"`
}

// CreateDocument stores a shared note/spec/report, optionally attached to a
// task, and appends its creation activity as one atomic unit.
func (e *Engine) CreateDocument(p CreateDocumentParams) (*models.Document, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocumentType, p.Type)
	}

	doc := &models.Document{
		Title:     p.Title,
		Content:   p.Content,
		Type:      p.Type,
		CreatedBy: p.CreatedBy,
		Tags:      p.Tags,
		TaskID:    p.TaskID,
	}
	act := &models.Activity{
		AgentID: p.CreatedBy,
		Type:    models.ActivitySystem,
		TaskID:  p.TaskID,
		Summary: fmt.Sprintf("%s created document: %s", p.CreatedBy, p.Title),
	}
	if err := e.store.CreateDocumentUnit(doc, act); err != nil {
		return nil, err
	}
	e.publish("document", doc)
	e.publish("activity", act)
	return doc, nil
}

// UpdateDocumentParams are the optional field updates for UpdateDocument.
// Nil fields are left untouched; the editor is always recorded.
type UpdateDocumentParams struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	EditedBy string  `json:"edited_by"`
}

// UpdateDocument patches a document's title and/or content and records the
// editor. Unknown documents are a no-op.
func (e *Engine) UpdateDocument(documentID string, p UpdateDocumentParams) (*models.Document, error) {
	doc, err := e.store.GetDocument(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	patch := store.DocumentPatch{Title: p.Title, Content: p.Content}
	if err := e.store.UpdateDocument(documentID, patch, p.EditedBy); err != nil {
		return nil, err
	}
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	doc.LastEditedBy = p.EditedBy
	return doc, nil
}

// GetDocument returns a document by ID, or (nil, nil).
func (e *Engine) GetDocument(documentID string) (*models.Document, error) {
	return e.store.GetDocument(documentID)
}

// ListDocuments returns documents newest first, optionally filtered by type.
func (e *Engine) ListDocuments(typ models.DocumentType) ([]models.Document, error) {
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocumentType, typ)
	}
	return e.store.ListDocuments(typ)
}

// DocumentsByTask returns the documents attached to a task.
func (e *Engine) DocumentsByTask(taskID string) ([]models.Document, error) {
	return e.store.DocumentsByTask(taskID)
}
