package models

import (
	"time"
)

// Document is one row of the document store. Content holds the entity as JSON.
type Document struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	Model      string    `json:"model" gorm:"type:text;not null;index:idx_documents_scope"`
	Context    string    `json:"context" gorm:"type:text;not null;index:idx_documents_scope"`
	Controller string    `json:"controller" gorm:"type:text;index"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CDate      time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;index"`
	MDate      time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}
