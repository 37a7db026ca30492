package handlers

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/storage"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ApplicationRequest struct {
	Degree           string `form:"degree" validate:"required,max=255"`
	Institution      string `form:"institution" validate:"required,max=255"`
	GraduationYear   int    `form:"graduationYear" validate:"required,min=1950,max=2100"`
	LicenseNumber    string `form:"licenseNumber" validate:"required,max=100"`
	IssuingAuthority string `form:"issuingAuthority" validate:"required,max=255"`
	LicenseExpiresOn string `form:"licenseExpiresOn" validate:"omitempty,datetime=2006-01-02"`
	AccountHolder    string `form:"accountHolder" validate:"required,max=255"`
	AccountNumber    string `form:"accountNumber" validate:"required,max=64"`
	BankName         string `form:"bankName" validate:"required,max=255"`
	RoutingCode      string `form:"routingCode" validate:"omitempty,max=64"`
}

// uploadDocument stores one required application document.
func uploadDocument(c *fiber.Ctx, owner uuid.UUID, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", apperrors.BadRequest("%s file is required", field)
	}
	f, err := storage.ReadFile(fh, storage.Document)
	if err != nil {
		return "", err
	}
	url, err := storage.Put(c.UserContext(), "applications", owner, f)
	if err != nil {
		return "", apperrors.Internal("Failed to upload %s", field)
	}
	return url, nil
}

func SubmitApplication(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)

	var req ApplicationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}
	if err := services.CheckCanSubmitApplication(counselor.Application.Status); err != nil {
		return err
	}

	var docs models.Documents
	for field, dst := range map[string]*string{
		"licenseDocument":   &docs.LicenseDocument,
		"degreeCertificate": &docs.DegreeCertificate,
		"idProof":           &docs.IDProof,
	} {
		url, err := uploadDocument(c, userID, field)
		if err != nil {
			return err
		}
		*dst = url
	}

	updated, err := services.SubmitApplication(userID, models.Application{
		Education: models.Education{
			Degree:         req.Degree,
			Institution:    req.Institution,
			GraduationYear: req.GraduationYear,
		},
		License: models.License{
			Number:           req.LicenseNumber,
			IssuingAuthority: req.IssuingAuthority,
			ExpiresOn:        req.LicenseExpiresOn,
		},
		Bank: models.BankDetails{
			AccountHolder: req.AccountHolder,
			AccountNumber: req.AccountNumber,
			BankName:      req.BankName,
			RoutingCode:   req.RoutingCode,
		},
		Documents: docs,
	})
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Application submitted", updated.Application)
}

func GetMyApplication(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Application fetched", counselor.Application)
}

// ListCounselors is the public directory of approved counselors.
func ListCounselors(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query := database.DB.Model(&models.Counselor{}).
		Where("application_status = ? AND is_blocked = ?", models.ApplicationApproved, false)
	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("LOWER(specializations) LIKE LOWER(?)", "%"+spec+"%")
	}
	if level := c.Query("level"); level != "" {
		query = query.Where("experience_level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var counselors []models.Counselor
	if err := query.Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&counselors).Error; err != nil {
		return err
	}

	out := make([]*models.Counselor, len(counselors))
	for i := range counselors {
		out[i] = counselors[i].Redacted()
	}
	return utils.RespondPage(c, "Counselors fetched", out, p, total)
}

func GetCounselor(c *fiber.Ctx) error {
	id, err := paramUUID(c, "counselorId")
	if err != nil {
		return err
	}
	counselor, err := loadCounselor(id)
	if err != nil {
		return err
	}
	if !counselor.IsBookable() {
		return apperrors.NotFound("Counselor not found")
	}
	return utils.Respond(c, fiber.StatusOK, "Counselor fetched", counselor.Redacted())
}

func GetCounselorBookings(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	p := utils.ParsePage(c)

	query := database.DB.Model(&models.Booking{}).Where("counselor_id = ?", userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var bookings []models.Booking
	err := query.Preload("Client").Order("starts_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&bookings).Error
	if err != nil {
		return err
	}
	return utils.RespondPage(c, "Bookings fetched", bookings, p, total)
}

func CompleteBooking(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	booking, err := services.CompleteSession(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Session marked as completed", booking)
}

type NoShowRequest struct {
	Party string `json:"party" validate:"required,oneof=client counselor"`
}

func CounselorReportNoShow(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	req := NoShowRequest{Party: models.RoleClient}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	booking, err := services.MarkNoShow(c.UserContext(), id, userID, models.RoleCounselor, req.Party)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Client no-show recorded", booking)
}

type EarningsSummary struct {
	Currency        string           `json:"currency"`
	ReleasedTotal   int64            `json:"released_total"`
	PendingTotal    int64            `json:"pending_total"`
	BookingsByState map[string]int64 `json:"bookings_by_status"`
}

func GetEarnings(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)

	summary := EarningsSummary{Currency: currency(), BookingsByState: map[string]int64{}}
	if err := database.DB.Model(&models.Booking{}).
		Where("counselor_id = ? AND payout_status = ?", userID, models.PayoutReleased).
		Select("COALESCE(SUM(payout_amount_to_counselor), 0)").
		Scan(&summary.ReleasedTotal).Error; err != nil {
		return err
	}
	if err := database.DB.Model(&models.Booking{}).
		Where("counselor_id = ? AND payout_status = ? AND status NOT IN ?", userID, models.PayoutPending,
			[]string{models.BookingCancelled, models.BookingNoShow}).
		Select("COALESCE(SUM(payout_amount_to_counselor), 0)").
		Scan(&summary.PendingTotal).Error; err != nil {
		return err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := database.DB.Model(&models.Booking{}).
		Where("counselor_id = ?", userID).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		summary.BookingsByState[r.Status] = r.Count
	}
	return utils.Respond(c, fiber.StatusOK, "Earnings fetched", summary)
}
