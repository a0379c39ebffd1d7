package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"skyport-server/models"
	"skyport-server/storage"
)

func TestRegisterReceiverIsApprovedImmediately(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"fullName": "Meles Alemu",
		"email":    "receiver@example.com",
		"password": "secret123",
		"role":     "receiver",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var out struct {
		ID          uint   `json:"id"`
		Role        string `json:"role"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Role != string(models.RoleReceiver) || out.AccessToken == "" {
		t.Fatalf("unexpected response: %+v", out)
	}

	var user models.User
	storage.DB.First(&user, out.ID)
	if !user.IsApproved {
		t.Fatal("receiver should be approved on registration")
	}

	// No phone gate for receivers: login works immediately
	login := doJSON(app, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    "receiver@example.com",
		"password": "secret123",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", login.Code, login.Body.String())
	}
}

func TestRegisterSenderRequiresValidPhone(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"fullName": "Abel Mekonnen",
		"email":    "sender@example.com",
		"password": "secret123",
		"phone":    "12345",
		"role":     "sender",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad phone, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	payload := map[string]interface{}{
		"fullName": "Abel Mekonnen",
		"email":    "dup@example.com",
		"password": "secret123",
		"phone":    "0911223344",
		"role":     "sender",
	}
	if resp := doJSON(app, http.MethodPost, "/api/auth/register", "", payload); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := doJSON(app, http.MethodPost, "/api/auth/register", "", payload); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", resp.Code)
	}
}

func TestLoginGatesForSenders(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	register := doJSON(app, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"fullName": "Hanna Tesfaye",
		"email":    "gated@example.com",
		"password": "secret123",
		"phone":    "0911223344",
		"role":     "carrier",
	})
	if register.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", register.Code, register.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(register.Body.Bytes(), &created)

	credentials := map[string]interface{}{
		"email":    "gated@example.com",
		"password": "secret123",
	}

	// Unverified phone blocks login
	if resp := doJSON(app, http.MethodPost, "/api/auth/login", "", credentials); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before phone verification, got %d", resp.Code)
	}

	storage.DB.Model(&models.User{}).Where("id = ?", created.ID).Update("phone_verified", true)

	// Verified but unapproved still blocks login
	if resp := doJSON(app, http.MethodPost, "/api/auth/login", "", credentials); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before approval, got %d", resp.Code)
	}

	// Agent approval opens the door
	agent := createTestAgent(t)
	agentToken := signTestToken(agent.ID, models.RoleAgent)
	approve := doJSON(app, http.MethodPost, "/api/auth/approve", agentToken, map[string]interface{}{
		"userId": created.ID,
	})
	if approve.Code != http.StatusOK {
		t.Fatalf("expected 200 on approve, got %d: %s", approve.Code, approve.Body.String())
	}
	if resp := doJSON(app, http.MethodPost, "/api/auth/login", "", credentials); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 after approval, got %d: %s", resp.Code, resp.Body.String())
	}

	// Wrong password stays a credentials error
	bad := doJSON(app, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    "gated@example.com",
		"password": "wrong",
	})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", bad.Code)
	}
}

func TestApproveUserIsAgentOnly(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	sender := createTestSender(t)
	resp := doJSON(app, http.MethodPost, "/api/auth/approve", signTestToken(sender.ID, models.RoleSender), map[string]interface{}{
		"userId": sender.ID,
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-agent, got %d", resp.Code)
	}
}

func TestPendingUsersListsUnapproved(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	pending := models.User{
		FullName: "Pending Person",
		Email:    "pending@example.com",
		Password: "x",
		Phone:    "251911000000",
		Role:     models.RoleSender,
	}
	storage.DB.Create(&pending)
	approved := createTestSender(t)
	_ = approved

	agent := createTestAgent(t)
	resp := doJSON(app, http.MethodGet, "/api/auth/pending-users", signTestToken(agent.ID, models.RoleAgent), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var list []models.User
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != pending.ID {
		t.Fatalf("expected only the pending user, got %+v", list)
	}
}
