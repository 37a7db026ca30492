package services

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckCanSubmitApplication rejects a new submission while one is pending or
// after approval.
func CheckCanSubmitApplication(status string) error {
	switch status {
	case models.ApplicationPending:
		return apperrors.BadRequest("Application already pending")
	case models.ApplicationApproved:
		return apperrors.BadRequest("Application already approved")
	}
	return nil
}

// SubmitApplication stores app on the counselor and queues it for review.
func SubmitApplication(counselorID uuid.UUID, app models.Application) (*models.Counselor, error) {
	var counselor models.Counselor
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&counselor, "id = ?", counselorID).Error; err != nil {
			return apperrors.NotFound("Counselor not found")
		}
		if err := CheckCanSubmitApplication(counselor.Application.Status); err != nil {
			return err
		}

		now := Now()
		app.Status = models.ApplicationPending
		app.SubmittedAt = &now
		app.ReviewedAt = nil
		app.ReviewedBy = nil
		app.RejectionReason = nil
		counselor.Application = app
		if err := tx.Omit(clause.Associations).Save(&counselor).Error; err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.CounselorRecipient(&counselor), notifications.TemplateApplicationReceived,
			map[string]any{"Name": counselor.FullName})
	})
	if err != nil {
		return nil, err
	}
	return &counselor, nil
}

// DecideApplication approves or rejects a pending application exactly once.
func DecideApplication(counselorID, adminID uuid.UUID, decision, reason string) (*models.Counselor, error) {
	if decision != models.ApplicationApproved && decision != models.ApplicationRejected {
		return nil, apperrors.BadRequest("decision must be approved or rejected")
	}

	var counselor models.Counselor
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&counselor, "id = ?", counselorID).Error; err != nil {
			return apperrors.NotFound("Counselor not found")
		}
		if counselor.Application.Status != models.ApplicationPending {
			return apperrors.BadRequest("Application is %s, only pending applications can be reviewed", counselor.Application.Status)
		}

		now := Now()
		counselor.Application.Status = decision
		counselor.Application.ReviewedAt = &now
		counselor.Application.ReviewedBy = &adminID
		tmpl := notifications.TemplateApplicationApproved
		if decision == models.ApplicationRejected {
			tmpl = notifications.TemplateApplicationRejected
			if reason != "" {
				counselor.Application.RejectionReason = &reason
			}
		}
		if err := tx.Omit(clause.Associations).Save(&counselor).Error; err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.CounselorRecipient(&counselor), tmpl,
			map[string]any{"Name": counselor.FullName, "Reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return &counselor, nil
}
