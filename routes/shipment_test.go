package routes

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"skyport-server/models"
	"skyport-server/storage"
)

func TestCreateShipmentCapacityExceeded(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 10)
	token := signTestToken(sender.ID, models.RoleSender)

	resp := doJSON(app, http.MethodPost, "/api/shipments", token, map[string]interface{}{
		"flightID":           flight.ID,
		"itemWeight":         15.0,
		"acceptorName":       "Meles Alemu",
		"acceptorPhone":      "0933445566",
		"acceptorNationalID": "ET-1234567",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized shipment, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := flightCapacity(t, flight.ID); got != 10 {
		t.Fatalf("capacity changed on rejected shipment: %v", got)
	}
}

func TestCreateShipmentDecrementsCapacity(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 10)
	token := signTestToken(sender.ID, models.RoleSender)

	resp := doJSON(app, http.MethodPost, "/api/shipments", token, map[string]interface{}{
		"flightID":           flight.ID,
		"itemWeight":         6.0,
		"itemDescription":    "documents",
		"acceptorName":       "Meles Alemu",
		"acceptorPhone":      "0933445566",
		"acceptorNationalID": "ET-1234567",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var out struct {
		TrackingCode string `json:"trackingCode"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.TrackingCode == "" {
		t.Fatal("expected a generated tracking code")
	}
	if out.Status != string(models.ShipmentRequested) {
		t.Fatalf("expected REQUESTED, got %s", out.Status)
	}
	if got := flightCapacity(t, flight.ID); got != 4 {
		t.Fatalf("expected 4kg remaining, got %v", got)
	}

	// A second 6kg request no longer fits
	resp2 := doJSON(app, http.MethodPost, "/api/shipments", token, map[string]interface{}{
		"flightID":           flight.ID,
		"itemWeight":         6.0,
		"acceptorName":       "Meles Alemu",
		"acceptorPhone":      "0933445566",
		"acceptorNationalID": "ET-1234567",
	})
	if resp2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second oversell, got %d", resp2.Code)
	}
	if got := flightCapacity(t, flight.ID); got != 4 {
		t.Fatalf("capacity changed on rejected shipment: %v", got)
	}
}

func TestCreateShipmentMissingAcceptor(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 10)
	token := signTestToken(sender.ID, models.RoleSender)

	resp := doJSON(app, http.MethodPost, "/api/shipments", token, map[string]interface{}{
		"flightID":   flight.ID,
		"itemWeight": 2.0,
		// acceptor fields missing
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing acceptor info, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.Shipment{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no shipment rows, got %d", count)
	}
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 10)
	token := signTestToken(sender.ID, models.RoleSender)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := doJSON(app, http.MethodPost, "/api/shipments", token, map[string]interface{}{
				"flightID":           flight.ID,
				"itemWeight":         6.0,
				"acceptorName":       "Meles Alemu",
				"acceptorPhone":      "0933445566",
				"acceptorNationalID": "ET-1234567",
			})
			codes[i] = resp.Code
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			successes++
		}
	}
	if successes > 1 {
		t.Fatalf("both 6kg shipments accepted against a 10kg flight")
	}

	if got := flightCapacity(t, flight.ID); got < 0 {
		t.Fatalf("flight capacity went negative: %v", got)
	}
}

func TestCancelShipmentRestoresCapacity(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 4)
	shipment := createTestShipment(t, sender.ID, flight.ID, 6, models.ShipmentRequested)
	token := signTestToken(sender.ID, models.RoleSender)

	resp := doJSON(app, http.MethodPost, shipmentPath(shipment.ID)+"/cancel", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := flightCapacity(t, flight.ID); got != 10 {
		t.Fatalf("expected capacity restored to 10, got %v", got)
	}

	// Terminal: cancelling again is an invalid state
	resp2 := doJSON(app, http.MethodPost, shipmentPath(shipment.ID)+"/cancel", token, nil)
	if resp2.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double cancel, got %d", resp2.Code)
	}
	if got := flightCapacity(t, flight.ID); got != 10 {
		t.Fatalf("capacity restored twice: %v", got)
	}
}

func TestMarkInTransitRequiresPaid(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp()

	carrier := createTestCarrier(t)
	sender := createTestSender(t)
	flight := createTestFlight(t, carrier.ID, 10)
	shipment := createTestShipment(t, sender.ID, flight.ID, 2, models.ShipmentRequested)
	token := signTestToken(carrier.ID, models.RoleCarrier)

	resp := doJSON(app, http.MethodPatch, shipmentPath(shipment.ID)+"/transit", token, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unpaid shipment, got %d", resp.Code)
	}

	storage.DB.Model(&models.Shipment{}).Where("id = ?", shipment.ID).
		Update("status", models.ShipmentPaid)
	resp2 := doJSON(app, http.MethodPatch, shipmentPath(shipment.ID)+"/transit", token, nil)
	if resp2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp2.Code, resp2.Body.String())
	}
}
