package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/routes"
	"github.com/anjiri1684/counsel_hub/testsupport"
	"github.com/gofiber/fiber/v2"
)

func otpCode(t *testing.T, email, role string) string {
	t.Helper()
	var otp models.OTP
	if err := database.DB.Where("email = ? AND role = ?", email, role).First(&otp).Error; err != nil {
		t.Fatalf("no otp for %s: %v", email, err)
	}
	return otp.Code
}

func verifyEmail(t *testing.T, app *fiber.App, prefix, role, email string) {
	t.Helper()
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/"+prefix+"/send-otp", "", fiber.Map{"email": email})
	if status != http.StatusOK {
		t.Fatalf("send-otp: %d %s", status, env.Message)
	}
	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/"+prefix+"/verify-otp", "", fiber.Map{"email": email, "otp": otpCode(t, email, role)})
	if status != http.StatusOK {
		t.Fatalf("verify-otp: %d %s", status, env.Message)
	}
}

func TestClientRegistrationFlow(t *testing.T) {
	app := testsupport.NewApp(t)
	email := "amina@example.com"

	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/send-otp", "", fiber.Map{"email": email})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("send-otp: %d %s", status, env.Message)
	}
	code := otpCode(t, email, models.RoleClient)

	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/verify-otp", "", fiber.Map{"email": email, "otp": code})
	if status != http.StatusOK || env.Message != "Email Verified Successfully" {
		t.Fatalf("verify-otp: %d %s", status, env.Message)
	}
	status, _ = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/verify-otp", "", fiber.Map{"email": email, "otp": code})
	if status != http.StatusNotFound {
		t.Fatalf("second verify: expected 404, got %d", status)
	}

	register := fiber.Map{
		"fullName": "Amina Wanjiru",
		"username": "amina",
		"email":    email,
		"phone":    "+254700000001",
		"password": "s3cretpass",
	}
	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/register", "", register)
	if status != http.StatusCreated {
		t.Fatalf("register: %d %s", status, env.Message)
	}
	var out struct {
		Token string `json:"token"`
		Role  string `json:"role"`
		User  struct {
			ID       string `json:"id"`
			Password string `json:"password"`
		} `json:"user"`
	}
	env.Into(t, &out)
	if out.Token == "" || out.Role != models.RoleClient || out.User.ID == "" || out.User.Password != "" {
		t.Fatalf("unexpected register response %+v", out)
	}

	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/send-otp", "", fiber.Map{"email": email})
	if status != http.StatusBadRequest || env.Message != "Email is already registered" {
		t.Fatalf("send-otp for registered email: %d %s", status, env.Message)
	}

	status, _ = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", fiber.Map{"identifier": "amina", "password": "s3cretpass"})
	if status != http.StatusOK {
		t.Fatalf("login by username: %d", status)
	}
	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", fiber.Map{"identifier": email, "password": "wrongpass"})
	if status != http.StatusUnauthorized || env.Message != "Invalid credentials" {
		t.Fatalf("bad password: %d %s", status, env.Message)
	}

	status, env = testsupport.JSON(t, app, http.MethodGet, "/api/v1/clients/me", out.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("profile: %d %s", status, env.Message)
	}
}

func TestRegisterRequiresVerification(t *testing.T) {
	app := testsupport.NewApp(t)
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/register", "", fiber.Map{
		"fullName": "No Otp",
		"username": "nootp",
		"email":    "nootp@example.com",
		"phone":    "+254700000002",
		"password": "s3cretpass",
	})
	if status != http.StatusBadRequest || env.Message != "Email has not been verified" {
		t.Fatalf("expected 400 unverified, got %d %s", status, env.Message)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := testsupport.NewApp(t)
	existing := testsupport.CreateClient(t)

	verifyEmail(t, app, "clients", models.RoleClient, "fresh@example.com")
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/register", "", fiber.Map{
		"fullName": "Someone Else",
		"username": existing.Username,
		"email":    "fresh@example.com",
		"phone":    "+254711111111",
		"password": "s3cretpass",
	})
	if status != http.StatusBadRequest || env.Message != "Email, username or phone is already registered" {
		t.Fatalf("expected duplicate error, got %d %s", status, env.Message)
	}
}

func TestExpiredOTP(t *testing.T) {
	app := testsupport.NewApp(t)
	start := time.Now().UTC().Truncate(time.Second)
	testsupport.FreezeClock(t, start)

	email := "late@example.com"
	testsupport.JSON(t, app, http.MethodPost, "/api/v1/counselors/send-otp", "", fiber.Map{"email": email})
	code := otpCode(t, email, models.RoleCounselor)

	testsupport.FreezeClock(t, start.Add(11*time.Minute))
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/counselors/verify-otp", "", fiber.Map{"email": email, "otp": code})
	if status != http.StatusBadRequest || env.Message != "OTP expired" {
		t.Fatalf("expected expired, got %d %s", status, env.Message)
	}
	status, _ = testsupport.JSON(t, app, http.MethodPost, "/api/v1/counselors/verify-otp", "", fiber.Map{"email": email, "otp": code})
	if status != http.StatusNotFound {
		t.Fatalf("expired OTP must be gone, got %d", status)
	}
}

func TestResetPassword(t *testing.T) {
	app := testsupport.NewApp(t)
	client := testsupport.CreateClient(t)

	status, _ := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/send-otp", "", fiber.Map{"email": "nobody@example.com", "purpose": "reset_password"})
	if status != http.StatusOK {
		t.Fatalf("unknown email must not be revealed, got %d", status)
	}

	testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/send-otp", "", fiber.Map{"email": client.Email, "purpose": "reset_password"})
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/reset-password", "", fiber.Map{
		"email":       client.Email,
		"otp":         otpCode(t, client.Email, models.RoleClient),
		"newPassword": "brandnewpass",
	})
	if status != http.StatusOK {
		t.Fatalf("reset: %d %s", status, env.Message)
	}
	status, _ = testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", fiber.Map{"identifier": client.Email, "password": "brandnewpass"})
	if status != http.StatusOK {
		t.Fatalf("login with new password: %d", status)
	}
}

func TestAuthGuards(t *testing.T) {
	app := testsupport.NewApp(t)
	client := testsupport.CreateClient(t)
	token := testsupport.Token(t, client.ID, models.RoleClient)

	if status, _ := testsupport.JSON(t, app, http.MethodGet, "/api/v1/clients/me", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", status)
	}
	if status, _ := testsupport.JSON(t, app, http.MethodGet, "/api/v1/admin/dashboard", token, nil); status != http.StatusForbidden {
		t.Fatalf("client on admin route: expected 403, got %d", status)
	}
	if status, _ := testsupport.JSON(t, app, http.MethodGet, "/api/v1/counselors/me/profile", token, nil); status != http.StatusForbidden {
		t.Fatalf("client on counselor route: expected 403, got %d", status)
	}

	database.DB.Model(client).Update("is_blocked", true)
	if status, _ := testsupport.JSON(t, app, http.MethodGet, "/api/v1/clients/me", token, nil); status != http.StatusForbidden {
		t.Fatalf("blocked client: expected 403, got %d", status)
	}
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", fiber.Map{"identifier": client.Email, "password": testsupport.Password})
	if status != http.StatusForbidden {
		t.Fatalf("blocked login: expected 403, got %d %s", status, env.Message)
	}
}

func TestAdminLogin(t *testing.T) {
	app := testsupport.NewApp(t)
	admin := testsupport.CreateAdmin(t, models.RoleSuperAdmin)

	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/admin/login", "", fiber.Map{"email": admin.Email, "password": testsupport.Password})
	if status != http.StatusOK {
		t.Fatalf("admin login: %d %s", status, env.Message)
	}
	var out struct {
		Role string `json:"role"`
	}
	env.Into(t, &out)
	if out.Role != models.RoleSuperAdmin {
		t.Fatalf("expected super_admin role, got %s", out.Role)
	}
}

func TestProtectedReadsHeaderAndCookie(t *testing.T) {
	app := testsupport.NewApp(t)
	client := testsupport.CreateClient(t)
	token := testsupport.Token(t, client.ID, models.RoleClient)

	cases := []struct {
		name   string
		auth   func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"token cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) }, http.StatusOK},
		{"header without scheme", func(r *http.Request) { r.Header.Set("Authorization", token) }, http.StatusUnauthorized},
		{"bearer with bad signature", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token+"x") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/me", nil)
		tc.auth(req)
		if status, _, body := testsupport.Raw(t, app, req); status != tc.status {
			t.Fatalf("%s: got %d, want %d (%s)", tc.name, status, tc.status, body)
		}
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	testsupport.Setup(t)
	config.Set("RATE_LIMIT_PER_MINUTE", 1)
	t.Cleanup(func() { config.Set("RATE_LIMIT_PER_MINUTE", 1000) })
	app := routes.NewApp()

	body := fiber.Map{"identifier": "nobody@example.com", "password": "wrong-password"}
	for i := 0; i < 5; i++ {
		if status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", body); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d %s, want 401", i+1, status, env.Message)
		}
	}
	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/login", "", body)
	if status != http.StatusTooManyRequests || env.Success {
		t.Fatalf("over the limit: got %d %s, want 429", status, env.Message)
	}

	// Each route keeps its own budget.
	if status, _ := testsupport.JSON(t, app, http.MethodPost, "/api/v1/counselors/login", "", body); status != http.StatusUnauthorized {
		t.Fatalf("counselor login: got %d, want 401", status)
	}
}
