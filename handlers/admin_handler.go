package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ListApplications(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	status := c.Query("status", models.ApplicationPending)

	query := database.DB.Model(&models.Counselor{}).Where("application_status = ?", status)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var counselors []models.Counselor
	err := query.Order("application_submitted_at asc").Offset(p.Offset()).Limit(p.Limit).Find(&counselors).Error
	if err != nil {
		return err
	}
	return utils.RespondPage(c, "Applications fetched", counselors, p, total)
}

type ApplicationDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Reason   string `json:"reason" validate:"max=2000"`
}

func DecideApplication(c *fiber.Ctx) error {
	adminID, _ := middleware.CurrentUser(c)
	counselorID, err := paramUUID(c, "counselorId")
	if err != nil {
		return err
	}
	var req ApplicationDecisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	counselor, err := services.DecideApplication(counselorID, adminID, req.Decision, req.Reason)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Application "+req.Decision, counselor)
}

type CreateAdminRequest struct {
	FullName string `json:"fullName" validate:"required,min=3,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func CreateAdmin(c *fiber.Ctx) error {
	var req CreateAdminRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		return err
	}
	admin := models.Admin{
		FullName: req.FullName,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.BadRequest("An admin with this email already exists")
		}
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Admin created", admin)
}

type AdminStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func SetAdminStatus(c *fiber.Ctx) error {
	currentID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "adminId")
	if err != nil {
		return err
	}
	var req AdminStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if id == currentID {
		return apperrors.BadRequest("You cannot change your own status")
	}

	var admin models.Admin
	if err := database.DB.First(&admin, "id = ?", id).Error; err != nil {
		return apperrors.NotFound("Admin not found")
	}
	if admin.Role == models.RoleSuperAdmin {
		return apperrors.Forbidden("Super admins cannot be deactivated")
	}
	admin.IsActive = *req.IsActive
	if err := database.DB.Save(&admin).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Admin status updated", admin)
}

type Dashboard struct {
	Clients             int64            `json:"clients"`
	Counselors          int64            `json:"counselors"`
	PendingApplications int64            `json:"pending_applications"`
	BookingsByStatus    map[string]int64 `json:"bookings_by_status"`
	OpenDisputes        int64            `json:"open_disputes"`
	GrossCaptured       int64            `json:"gross_captured"`
	RefundedTotal       int64            `json:"refunded_total"`
	PlatformFees        int64            `json:"platform_fees"`
	PendingPayouts      int64            `json:"pending_payouts"`
	QueuedNotifications int64            `json:"queued_notifications"`
	Currency            string           `json:"currency"`
}

func GetDashboard(c *fiber.Ctx) error {
	db := database.DB
	d := Dashboard{BookingsByStatus: map[string]int64{}, Currency: currency()}

	steps := []func() error{
		func() error { return db.Model(&models.Client{}).Count(&d.Clients).Error },
		func() error { return db.Model(&models.Counselor{}).Count(&d.Counselors).Error },
		func() error {
			return db.Model(&models.Counselor{}).Where("application_status = ?", models.ApplicationPending).Count(&d.PendingApplications).Error
		},
		func() error {
			return db.Model(&models.Booking{}).
				Where("dispute_status IN ?", []string{models.DisputeOpen, models.DisputeUnderReview}).
				Count(&d.OpenDisputes).Error
		},
		func() error {
			return db.Model(&models.Payment{}).Select("COALESCE(SUM(amount), 0)").Scan(&d.GrossCaptured).Error
		},
		func() error {
			return db.Model(&models.Payment{}).Select("COALESCE(SUM(refunded_amount), 0)").Scan(&d.RefundedTotal).Error
		},
		func() error {
			return db.Model(&models.Booking{}).Where("payout_status = ?", models.PayoutReleased).
				Select("COALESCE(SUM(payout_platform_fee), 0)").Scan(&d.PlatformFees).Error
		},
		func() error {
			return db.Model(&models.Booking{}).
				Where("payout_status = ? AND status NOT IN ?", models.PayoutPending, []string{models.BookingCancelled, models.BookingNoShow}).
				Select("COALESCE(SUM(payout_amount_to_counselor), 0)").Scan(&d.PendingPayouts).Error
		},
		func() error {
			return db.Model(&models.Notification{}).
				Where("status IN ?", []string{models.NotificationPending, models.NotificationRetrying}).
				Count(&d.QueuedNotifications).Error
		},
		func() error {
			var rows []struct {
				Status string
				Count  int64
			}
			if err := db.Model(&models.Booking{}).Select("status, COUNT(*) as count").Group("status").Scan(&rows).Error; err != nil {
				return err
			}
			for _, r := range rows {
				d.BookingsByStatus[r.Status] = r.Count
			}
			return nil
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return utils.Respond(c, fiber.StatusOK, "Dashboard fetched", d)
}

// filterAccounts applies the shared search and blocked filters of the
// client and counselor listings.
func filterAccounts(c *fiber.Ctx, query *gorm.DB) (*gorm.DB, error) {
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR email LIKE ? OR username LIKE ?", like, like, like)
	}
	if blocked := c.Query("blocked"); blocked != "" {
		v, err := strconv.ParseBool(blocked)
		if err != nil {
			return nil, apperrors.BadRequest("blocked must be true or false")
		}
		query = query.Where("is_blocked = ?", v)
	}
	return query, nil
}

func ListClients(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query, err := filterAccounts(c, database.DB.Model(&models.Client{}))
	if err != nil {
		return err
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var clients []models.Client
	if err := query.Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&clients).Error; err != nil {
		return err
	}
	return utils.RespondPage(c, "Clients fetched", clients, p, total)
}

func AdminListCounselors(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query, err := filterAccounts(c, database.DB.Model(&models.Counselor{}))
	if err != nil {
		return err
	}
	if status := c.Query("applicationStatus"); status != "" {
		query = query.Where("application_status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var counselors []models.Counselor
	if err := query.Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&counselors).Error; err != nil {
		return err
	}
	return utils.RespondPage(c, "Counselors fetched", counselors, p, total)
}

type BlockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

func BlockClient(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req BlockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client, err := loadClient(id)
	if err != nil {
		return err
	}
	client.IsBlocked = *req.Blocked
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Client{}).Where("id = ?", id).Update("is_blocked", client.IsBlocked).Error; err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.ClientRecipient(client), notifications.TemplateAccountStatusChanged,
			map[string]any{"Name": client.FullName, "Blocked": client.IsBlocked})
	})
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Client status updated", client)
}

func BlockCounselor(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req BlockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	counselor, err := loadCounselor(id)
	if err != nil {
		return err
	}
	counselor.IsBlocked = *req.Blocked
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Counselor{}).Where("id = ?", id).Update("is_blocked", counselor.IsBlocked).Error; err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.CounselorRecipient(counselor), notifications.TemplateAccountStatusChanged,
			map[string]any{"Name": counselor.FullName, "Blocked": counselor.IsBlocked})
	})
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Counselor status updated", counselor)
}

func AdminListBookings(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query := database.DB.Model(&models.Booking{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if counselorID := c.Query("counselorId"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if clientID := c.Query("clientId"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var bookings []models.Booking
	err := query.Preload("Client").Preload("Counselor").
		Order("starts_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&bookings).Error
	if err != nil {
		return err
	}
	return utils.RespondPage(c, "Bookings fetched", bookings, p, total)
}

func AdminReportNoShow(c *fiber.Ctx) error {
	adminID, role := middleware.CurrentUser(c)
	id, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	var req NoShowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	booking, err := services.MarkNoShow(c.UserContext(), id, adminID, role, req.Party)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "No-show recorded", booking)
}

func AdminReleasePayout(c *fiber.Ctx) error {
	id, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	booking, err := services.FinalizeBooking(c.UserContext(), id, true)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Payout released", booking)
}

func AdminListDisputes(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query := database.DB.Model(&models.Booking{}).Where("dispute_is_disputed = ?", true)
	if status := c.Query("status"); status != "" {
		query = query.Where("dispute_status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var bookings []models.Booking
	err := query.Preload("Client").Preload("Counselor").
		Order("dispute_raised_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&bookings).Error
	if err != nil {
		return err
	}
	return utils.RespondPage(c, "Disputes fetched", bookings, p, total)
}

func AdminReviewDispute(c *fiber.Ctx) error {
	adminID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	var req services.ReviewDisputeInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	booking, err := services.ReviewDispute(c.UserContext(), id, adminID, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Dispute updated", booking)
}

func ListNotifications(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query := database.DB.Model(&models.Notification{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var items []models.Notification
	if err := query.Omit("html").Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return err
	}
	return utils.RespondPage(c, "Notifications fetched", items, p, total)
}

func RetryNotification(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	n, err := notifications.Retry(database.DB, id)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Notification queued for retry", n)
}

func AbandonNotification(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	n, err := notifications.Abandon(database.DB, id)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Notification abandoned", n)
}

// GenerateTransactionReport streams captured payments in a date range as CSV.
func GenerateTransactionReport(c *fiber.Ctx) error {
	startDateStr := c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDateStr := c.Query("end_date", time.Now().Format("2006-01-02"))

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		return apperrors.BadRequest("Invalid start_date format. Use YYYY-MM-DD.")
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		return apperrors.BadRequest("Invalid end_date format. Use YYYY-MM-DD.")
	}
	endOfDay := endDate.Add(24*time.Hour - time.Second)

	var bookings []models.Booking
	err = database.DB.
		Preload("Client").Preload("Counselor").Preload("Payment").
		Where("created_at BETWEEN ? AND ?", startDate, endOfDay).
		Order("created_at desc").
		Find(&bookings).Error
	if err != nil {
		return err
	}

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)

	headers := []string{"Booking ID", "Date", "Client", "Counselor", "Status", "Provider", "Provider Payment ID",
		"Amount", "Currency", "Provider Fee", "Refunded", "Counselor Payout", "Platform Fee", "Payout Status"}
	if err := w.Write(headers); err != nil {
		return apperrors.Internal("Failed to write CSV header")
	}

	for _, bk := range bookings {
		var clientName, counselorName, provider, providerID string
		var fee, refunded int64
		if bk.Client != nil {
			clientName = bk.Client.FullName
		}
		if bk.Counselor != nil {
			counselorName = bk.Counselor.FullName
		}
		if bk.Payment != nil {
			provider = bk.Payment.Provider
			providerID = bk.Payment.ProviderPaymentID
			fee = bk.Payment.ProviderFee
			refunded = bk.Payment.RefundedAmount
		}
		row := []string{
			bk.ID.String(),
			bk.CreatedAt.Format("2006-01-02 15:04"),
			clientName,
			counselorName,
			bk.Status,
			provider,
			providerID,
			payments.FormatMinor(bk.Amount),
			bk.Currency,
			payments.FormatMinor(fee),
			payments.FormatMinor(refunded),
			payments.FormatMinor(bk.Payout.AmountToCounselor),
			payments.FormatMinor(bk.Payout.PlatformFee),
			bk.Payout.Status,
		}
		if err := w.Write(row); err != nil {
			return apperrors.Internal("Failed to write CSV row")
		}
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s_to_%s.csv\"", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))
	return c.Send(b.Bytes())
}
