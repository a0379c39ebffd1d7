package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"skyport-server/models"
	"skyport-server/storage"
)

func TestGetCarrierPoints(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	token := signTestToken(carrier.ID, models.RoleCarrier)

	resp := doJSON(app, http.MethodGet, "/api/points", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Points int64 `json:"points"`
	}
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Points != 0 {
		t.Fatalf("expected 0 points, got %d", out.Points)
	}

	storage.DB.Model(&models.CarrierProfile{}).
		Where("user_id = ?", carrier.ID).
		Update("points", 3)

	resp2 := doJSON(app, http.MethodGet, "/api/points", token, nil)
	json.Unmarshal(resp2.Body.Bytes(), &out)
	if out.Points != 3 {
		t.Fatalf("expected 3 points, got %d", out.Points)
	}
}

func TestGetCarrierPointsSenderForbidden(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	sender := createTestSender(t)
	resp := doJSON(app, http.MethodGet, "/api/points", signTestToken(sender.ID, models.RoleSender), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}
