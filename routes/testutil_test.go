package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"skyport-server/chat"
	"skyport-server/models"
	"skyport-server/services"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB swaps storage.DB for a fresh in-memory sqlite database.
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Agent{},
		&models.CarrierProfile{},
		&models.Flight{},
		&models.Shipment{},
		&models.PaymentTransaction{},
		&models.SupportMessage{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	storage.DB = db
	storage.InitializeRedis() // no server needed; best-effort writes are ignored
	ChatHub = chat.NewHub()
}

// buildTestApp wires the routes under test the same way main does.
func buildTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	os.Setenv("REFRESH_TOKEN_SECRET", "testrefreshsecret")
	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", Register)
		auth.Post("/login", Login)
		auth.Get("/me", accessTokenVerifierMiddleware, GetMe)
		auth.Get("/pending-users", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, GetPendingUsers)
		auth.Post("/approve", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, ApproveUser)
	}

	flights := app.Party("/api/flights")
	{
		flights.Get("/", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, GetAllFlights)
		flights.Post("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, AddFlight)
		flights.Put("/{flightID:uint}/status", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, UpdateFlightStatus)
		flights.Get("/shipments", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, GetCarrierShipments)
	}

	shipments := app.Party("/api/shipments")
	{
		shipments.Post("/", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, CreateShipment)
		shipments.Post("/{shipmentID:uint}/cancel", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, CancelShipment)
		shipments.Patch("/{shipmentID:uint}/transit", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, MarkInTransit)
	}

	payment := app.Party("/api/payment")
	{
		payment.Post("/initialize", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, InitializePayment)
		payment.Get("/verify/{reference:string}", VerifyPayment)
		payment.Post("/release", ReleasePayment)
	}

	app.Get("/api/track/{trackingCode:string}", TrackShipment)
	app.Post("/api/confirm/{trackingCode:string}", ConfirmDelivery)

	support := app.Party("/api/support")
	{
		support.Get("/user/{userID:uint}", accessTokenVerifierMiddleware, GetUserMessages)
		support.Get("/agent/all", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, GetAllMessagesForAgents)
		support.Post("/message", accessTokenVerifierMiddleware, CreateMessage)
	}

	points := app.Party("/api/points")
	{
		points.Get("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, GetCarrierPoints)
	}

	otp := app.Party("/api/otp")
	{
		otp.Post("/verify", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, VerifyOTP)
		otp.Post("/resend", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, ResendOTP)
	}

	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

func signTestToken(id uint, role models.Role) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}

func doJSON(app *iris.Application, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

// Fixtures

func createTestSender(t *testing.T) models.User {
	t.Helper()
	user := models.User{
		FullName:      "Abel Mekonnen",
		Email:         fmt.Sprintf("sender-%s@example.com", utils.GenerateShortToken(4)),
		Password:      "x",
		Phone:         "251911223344",
		Role:          models.RoleSender,
		PhoneVerified: true,
		IsApproved:    true,
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create sender: %v", err)
	}
	return user
}

func createTestCarrier(t *testing.T) models.User {
	t.Helper()
	user := models.User{
		FullName:      "Hanna Tesfaye",
		Email:         fmt.Sprintf("carrier-%s@example.com", utils.GenerateShortToken(4)),
		Password:      "x",
		Phone:         "251922334455",
		Role:          models.RoleCarrier,
		PhoneVerified: true,
		IsApproved:    true,
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create carrier: %v", err)
	}
	storage.DB.Create(&models.CarrierProfile{UserID: user.ID})
	return user
}

func createTestFlight(t *testing.T, carrierID uint, availableKg float64) models.Flight {
	t.Helper()
	flight := models.Flight{
		CarrierID:     carrierID,
		FromCity:      "ADD",
		ToCity:        "DXB",
		DepartureDate: time.Now().Add(72 * time.Hour),
		AvailableKg:   availableKg,
		Status:        models.FlightActive,
	}
	if err := storage.DB.Create(&flight).Error; err != nil {
		t.Fatalf("create flight: %v", err)
	}
	return flight
}

func createTestShipment(t *testing.T, senderID, flightID uint, weight float64, status models.ShipmentStatus) models.Shipment {
	t.Helper()
	shipment := models.Shipment{
		FlightID:           flightID,
		SenderID:           senderID,
		TrackingCode:       newTrackingCode(),
		ItemWeight:         weight,
		AcceptorName:       "Meles Alemu",
		AcceptorPhone:      "251933445566",
		AcceptorNationalID: "ET-1234567",
		Status:             status,
		CapacityReserved:   true,
	}
	if err := storage.DB.Create(&shipment).Error; err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	return shipment
}

// fakePaystack stands in for the payment gateway. verifyStatus controls what
// /transaction/verify reports; failRelease makes /transfer return a 500;
// delay makes every response outlast the client timeout.
type fakePaystack struct {
	verifyStatus string
	failRelease  bool
	delay        time.Duration
	releases     int
}

func startFakeGateway(t *testing.T, fake *fakePaystack) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fake.delay > 0 {
			time.Sleep(fake.delay)
		}
		switch {
		case r.URL.Path == "/transaction/initialize":
			var in struct {
				Reference string `json:"reference"`
			}
			json.NewDecoder(r.Body).Decode(&in)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"authorization_url": "https://checkout.example/" + in.Reference,
					"reference":         in.Reference,
				},
			})
		case strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"status": fake.verifyStatus},
			})
		case r.URL.Path == "/transfer":
			if fake.failRelease {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fake.releases++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"amount": int64(50000)},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	client := srv.Client()
	client.Timeout = 250 * time.Millisecond
	Gateway = &services.PaymentGateway{
		BaseURL:    srv.URL,
		SecretKey:  "sk_test",
		HTTPClient: client,
	}
}

func shipmentPath(id uint) string {
	return fmt.Sprintf("/api/shipments/%d", id)
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}

func flightCapacity(t *testing.T, flightID uint) float64 {
	t.Helper()
	var flight models.Flight
	if err := storage.DB.First(&flight, flightID).Error; err != nil {
		t.Fatalf("reload flight: %v", err)
	}
	return flight.AvailableKg
}
