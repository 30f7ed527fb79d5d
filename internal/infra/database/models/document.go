package models

import (
	"time"
)

// Document is the row form of a stored record.
type Document struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	Type       string    `json:"type" gorm:"type:text;not null;index"`
	Revision   string    `json:"revision" gorm:"type:text;not null"`
	Generation int64     `json:"generation" gorm:"not null"`
	Value      string    `json:"value" gorm:"type:text;not null"`
	Meta       string    `json:"meta" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
