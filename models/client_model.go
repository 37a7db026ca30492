package models

type Client struct {
	Base
	FullName          string            `gorm:"size:255;not null" json:"full_name"`
	Username          string            `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email             string            `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone             string            `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	Password          string            `gorm:"not null" json:"-"`
	ProfilePictureURL *string           `gorm:"size:512" json:"profile_picture_url"`
	Preferences       map[string]string `gorm:"type:text;serializer:json" json:"preferences"`
	IsBlocked         bool              `json:"is_blocked"`
}
