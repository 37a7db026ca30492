package models

import "github.com/google/uuid"

type Blog struct {
	Base
	CounselorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"counselor_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:300;not null;uniqueIndex" json:"slug"`
	Markdown    string     `gorm:"type:text;not null" json:"markdown"`
	HTML        string     `gorm:"type:text;not null" json:"html"`
	Tags        []string   `gorm:"type:text;serializer:json" json:"tags"`
	Published   bool       `json:"published"`
	Counselor   *Counselor `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
}
