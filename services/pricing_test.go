package services_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/testsupport"
)

func TestValidateSessionPrice(t *testing.T) {
	testsupport.SetupDB(t)

	if err := services.ValidateSessionPrice(database.DB, models.LevelIntermediate, 6000); err != nil {
		t.Fatalf("in bounds: %v", err)
	}

	err := services.ValidateSessionPrice(database.DB, models.LevelIntermediate, 9000)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Status != http.StatusBadRequest {
		t.Fatalf("out of bounds: %v", err)
	}
	if want := "Session price must be between 40.00 and 80.00 for intermediate counselors"; appErr.Message != want {
		t.Fatalf("message = %q, want %q", appErr.Message, want)
	}

	if err := services.ValidateSessionPrice(database.DB, "unknown", 6000); err == nil {
		t.Fatal("expected an error for a level without bounds")
	}
}
