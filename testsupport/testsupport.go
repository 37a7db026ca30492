// Package testsupport builds an in-memory database, the Fiber app and
// fixtures for package tests.
package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/events"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/anjiri1684/counsel_hub/routes"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/storage"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const Password = "password123"

var seq atomic.Int64

// SetupDB points database.DB at a fresh in-memory SQLite database with the
// full schema and default price bounds.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	database.DB = db
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedPrices(); err != nil {
		t.Fatalf("seed prices: %v", err)
	}
	return db
}

// Setup configures the process for tests: database, sandbox payments,
// memory storage and a recorder for domain events.
func Setup(t *testing.T) *events.Recorder {
	t.Helper()
	config.Set("JWT_SECRET", "test-secret")
	config.Set("RATE_LIMIT_PER_MINUTE", 1000)
	config.Set("DISABLE_ACCESS_LOG", true)
	config.Set("APP_TIMEZONE", "UTC")
	config.Set("REDIS_URL", "")

	SetupDB(t)
	payments.Register(payments.NewSandboxGateway())
	storage.Default = storage.NewMemoryUploader()

	rec := &events.Recorder{}
	prev := events.Default
	events.Default = rec
	t.Cleanup(func() { events.Default = prev })
	return rec
}

// NewApp runs Setup and returns the full application.
func NewApp(t *testing.T) *fiber.App {
	t.Helper()
	Setup(t)
	return routes.NewApp()
}

// FreezeClock pins services.Now to at until the test ends.
func FreezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := services.Now
	services.Now = func() time.Time { return at }
	t.Cleanup(func() { services.Now = prev })
}

func Token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, _, err := services.IssueToken(userID, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func hash(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func next() int64 { return seq.Add(1) }

func CreateClient(t *testing.T) *models.Client {
	t.Helper()
	n := next()
	c := models.Client{
		FullName: fmt.Sprintf("Client %d", n),
		Username: fmt.Sprintf("client%d", n),
		Email:    fmt.Sprintf("client%d@example.com", n),
		Phone:    fmt.Sprintf("+25479%07d", n),
		Password: hash(t),
	}
	if err := database.DB.Create(&c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &c
}

// CreateCounselor creates an approved intermediate counselor charging 5000.
func CreateCounselor(t *testing.T) *models.Counselor {
	t.Helper()
	n := next()
	c := models.Counselor{
		FullName:        fmt.Sprintf("Counselor %d", n),
		Username:        fmt.Sprintf("counselor%d", n),
		Email:           fmt.Sprintf("counselor%d@example.com", n),
		Phone:           fmt.Sprintf("+2541%08d", n),
		Password:        hash(t),
		Specializations: []string{"anxiety"},
		ExperienceYears: 4,
		ExperienceLevel: models.LevelIntermediate,
		SessionPrice:    5000,
		Application:     models.Application{Status: models.ApplicationApproved},
	}
	if err := database.DB.Create(&c).Error; err != nil {
		t.Fatalf("create counselor: %v", err)
	}
	return &c
}

func CreateAdmin(t *testing.T, role string) *models.Admin {
	t.Helper()
	n := next()
	a := models.Admin{
		FullName: fmt.Sprintf("Admin %d", n),
		Email:    fmt.Sprintf("admin%d@example.com", n),
		Password: hash(t),
		Role:     role,
		IsActive: true,
	}
	if err := database.DB.Create(&a).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &a
}

// CreateSlot creates an open one hour slot starting at startsAt.
func CreateSlot(t *testing.T, counselor *models.Counselor, startsAt time.Time) *models.Slot {
	t.Helper()
	startsAt = startsAt.UTC()
	s := models.Slot{
		CounselorID: counselor.ID,
		Date:        startsAt.Format("2006-01-02"),
		StartTime:   startsAt.Format("15:04"),
		EndTime:     startsAt.Add(time.Hour).Format("15:04"),
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(time.Hour),
		Status:      models.SlotOpen,
		BasePrice:   counselor.SessionPrice,
	}
	if err := database.DB.Create(&s).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return &s
}

// CreateBooking books slot for client through the sandbox gateway.
func CreateBooking(t *testing.T, client *models.Client, slot *models.Slot) *models.Booking {
	t.Helper()
	b, err := services.CreateBooking(t.Context(), services.CreateBookingInput{
		ClientID:          client.ID,
		SlotID:            slot.ID,
		Provider:          "sandbox",
		ProviderPaymentID: "pay_" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

// Envelope is the decoded {success, message, data} response body.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

// Into decodes Data into v.
func (e Envelope) Into(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", e.Data, err)
	}
}

func do(t *testing.T, app *fiber.App, req *http.Request, token string) (int, Envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, raw, err)
		}
	}
	return resp.StatusCode, env
}

// Raw sends req unchanged and returns the status, headers and body, for
// responses that are not JSON envelopes.
func Raw(t *testing.T, app *fiber.App, req *http.Request) (int, http.Header, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header, raw
}

// JSON sends body encoded as JSON. A nil body sends no payload.
func JSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, Envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(t, app, req, token)
}

// Upload is one file part of a multipart request.
type Upload struct {
	Field    string
	Filename string
	Data     []byte
}

func Multipart(t *testing.T, app *fiber.App, method, path, token string, fields map[string]string, files []Upload) (int, Envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(t, app, req, token)
}

// PDF is the smallest payload sniffed as application/pdf.
var PDF = []byte("%PDF-1.4\n1 0 obj<<>>endobj\ntrailer<<>>\n%%EOF\n")
