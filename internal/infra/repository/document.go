package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/internal/infra/database/models"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Insert(ctx context.Context, model, contextID, controller string, content map[string]any) (crtv.Document, error) {

	body, err := json.Marshal(content)
	if err != nil {
		return crtv.Document{}, err
	}

	now := time.Now().UTC()
	doc := models.Document{
		ID:         uuid.NewString(),
		Model:      model,
		Context:    contextID,
		Controller: controller,
		Content:    string(body),
		CDate:      now,
		MDate:      now,
	}

	err = r.db.WithContext(ctx).Create(&doc).Error
	if err != nil {
		return crtv.Document{}, err
	}

	return toDocument(doc)
}

// Replace overwrites the content of an existing document.
func (r *DocumentRepository) Replace(ctx context.Context, id string, content map[string]any) (crtv.Document, error) {

	body, err := json.Marshal(content)
	if err != nil {
		return crtv.Document{}, err
	}

	var doc models.Document
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&doc).Error
		if err != nil {
			return err
		}

		doc.Content = string(body)
		doc.MDate = time.Now().UTC()

		return tx.Model(&models.Document{}).
			Where("id = ?", id).
			Updates(map[string]any{"content": doc.Content, "m_date": doc.MDate}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return crtv.Document{}, domain.NotFoundError{Resource: "document"}
		}
		return crtv.Document{}, err
	}

	return toDocument(doc)
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (crtv.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return crtv.Document{}, domain.NotFoundError{Resource: "document"}
		}
		return crtv.Document{}, err
	}
	return toDocument(doc)
}

// SelectFirst returns the oldest document of the scope whose content matches
// every key of filter.
func (r *DocumentRepository) SelectFirst(ctx context.Context, model, contextID string, filter map[string]string) (crtv.Document, error) {

	query := r.db.WithContext(ctx).
		Where("model = ? AND context = ?", model, contextID)

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	field := r.contentField()
	for _, key := range keys {
		query = query.Where(fmt.Sprintf("%s ->> ? = ?", field), key, filter[key])
	}

	var doc models.Document
	err := query.Order("c_date asc").Order("id asc").Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return crtv.Document{}, domain.NotFoundError{Resource: model}
		}
		return crtv.Document{}, err
	}

	return toDocument(doc)
}

func (r *DocumentRepository) contentField() string {
	if r.db.Dialector.Name() == "postgres" {
		return "content::jsonb"
	}
	return "content"
}

func toDocument(doc models.Document) (crtv.Document, error) {
	var content map[string]any
	err := json.Unmarshal([]byte(doc.Content), &content)
	if err != nil {
		return crtv.Document{}, err
	}

	return crtv.Document{
		ID:         doc.ID,
		Model:      doc.Model,
		Context:    doc.Context,
		Controller: doc.Controller,
		Content:    content,
		CreatedAt:  doc.CDate,
		UpdatedAt:  doc.MDate,
	}, nil
}
