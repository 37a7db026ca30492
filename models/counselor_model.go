package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationNotSubmitted = "not_submitted"
	ApplicationPending      = "pending"
	ApplicationApproved     = "approved"
	ApplicationRejected     = "rejected"
)

type Counselor struct {
	Base
	FullName          string      `gorm:"size:255;not null" json:"full_name"`
	Username          string      `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email             string      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone             string      `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	Password          string      `gorm:"not null" json:"-"`
	ProfilePictureURL *string     `gorm:"size:512" json:"profile_picture_url"`
	Bio               string      `gorm:"type:text" json:"bio"`
	Specializations   []string    `gorm:"type:text;serializer:json" json:"specializations"`
	ExperienceYears   int         `json:"experience_years"`
	ExperienceLevel   string      `gorm:"size:20;not null" json:"experience_level"`
	SessionPrice      int64       `json:"session_price"`
	IsBlocked         bool        `json:"is_blocked"`
	Application       Application `gorm:"embedded;embeddedPrefix:application_" json:"application"`
}

// Application is the credential dossier a counselor submits for review.
type Application struct {
	Status          string      `gorm:"size:20;not null;index" json:"status"`
	Education       Education   `gorm:"embedded;embeddedPrefix:education_" json:"education"`
	License         License     `gorm:"embedded;embeddedPrefix:license_" json:"license"`
	Bank            BankDetails `gorm:"embedded;embeddedPrefix:bank_" json:"-"`
	Documents       Documents   `gorm:"embedded;embeddedPrefix:documents_" json:"documents"`
	SubmittedAt     *time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time  `json:"reviewed_at"`
	ReviewedBy      *uuid.UUID  `gorm:"type:uuid" json:"reviewed_by"`
	RejectionReason *string     `gorm:"type:text" json:"rejection_reason"`
}

type Education struct {
	Degree         string `gorm:"size:255" json:"degree"`
	Institution    string `gorm:"size:255" json:"institution"`
	GraduationYear int    `json:"graduation_year"`
}

type License struct {
	Number           string `gorm:"size:100" json:"number"`
	IssuingAuthority string `gorm:"size:255" json:"issuing_authority"`
	ExpiresOn        string `gorm:"size:10" json:"expires_on"`
}

type BankDetails struct {
	AccountHolder string `gorm:"size:255" json:"account_holder"`
	AccountNumber string `gorm:"size:64" json:"account_number"`
	BankName      string `gorm:"size:255" json:"bank_name"`
	RoutingCode   string `gorm:"size:64" json:"routing_code"`
}

type Documents struct {
	LicenseDocument   string `gorm:"size:512" json:"license_document"`
	DegreeCertificate string `gorm:"size:512" json:"degree_certificate"`
	IDProof           string `gorm:"size:512" json:"id_proof"`
}

// IsBookable reports whether clients may see and book this counselor.
func (c *Counselor) IsBookable() bool {
	return c.Application.Status == ApplicationApproved && !c.IsBlocked
}

// Redacted is the view of a counselor shown to clients and the public:
// credentials, bank details and contact fields are stripped.
func (c *Counselor) Redacted() *Counselor {
	cp := *c
	cp.Email = ""
	cp.Phone = ""
	cp.Application = Application{Status: c.Application.Status}
	return &cp
}
