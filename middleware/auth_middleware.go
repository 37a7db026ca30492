package middleware

import (
	"strings"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Protected accepts the JWT as a bearer header or as the token cookie.
func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
		TokenLookup:  "header:Authorization,cookie:token",
		AuthScheme:   "Bearer",
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "Missing or malformed JWT") {
		return utils.Fail(c, fiber.StatusUnauthorized, "Missing or malformed JWT")
	}
	return utils.Fail(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
}

// CurrentUser reads the user id and role from the verified token.
func CurrentUser(c *fiber.Ctx) (uuid.UUID, string) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ""
	}
	rawID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, ""
	}
	return userID, role
}

func IsAdminRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func requireRole(message string, allowed func(role string) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role := CurrentUser(c)
		if userID == uuid.Nil || !allowed(role) {
			return utils.Fail(c, fiber.StatusForbidden, message)
		}
		return c.Next()
	}
}

func ClientRequired() fiber.Handler {
	return requireRole("Forbidden: Client access required", func(role string) bool { return role == models.RoleClient })
}

func CounselorRequired() fiber.Handler {
	return requireRole("Forbidden: Counselor access required", func(role string) bool { return role == models.RoleCounselor })
}

func AdminRequired() fiber.Handler {
	return requireRole("Forbidden: Admin access required", IsAdminRole)
}

func SuperAdminRequired() fiber.Handler {
	return requireRole("Forbidden: Super admin access required", func(role string) bool { return role == models.RoleSuperAdmin })
}

// ActiveAccount rejects tokens of accounts that were blocked or deactivated
// after the token was issued.
func ActiveAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role := CurrentUser(c)

		var blocked bool
		var found bool
		switch role {
		case models.RoleClient:
			var client models.Client
			found = database.DB.Select("id", "is_blocked").First(&client, "id = ?", userID).Error == nil
			blocked = client.IsBlocked
		case models.RoleCounselor:
			var counselor models.Counselor
			found = database.DB.Select("id", "is_blocked").First(&counselor, "id = ?", userID).Error == nil
			blocked = counselor.IsBlocked
		case models.RoleAdmin, models.RoleSuperAdmin:
			var admin models.Admin
			found = database.DB.Select("id", "is_active").First(&admin, "id = ?", userID).Error == nil
			blocked = !admin.IsActive
		}

		if !found {
			return utils.Fail(c, fiber.StatusUnauthorized, "Account not found")
		}
		if blocked {
			return utils.Fail(c, fiber.StatusForbidden, "Your account has been blocked")
		}
		return c.Next()
	}
}
