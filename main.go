package main

import (
	"fmt"
	"log"
	"os"

	"skyport-server/chat"
	"skyport-server/routes"
	"skyport-server/services"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	routes.Gateway = services.NewPaymentGateway()
	routes.ChatHub = chat.NewHub()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", routes.Register)
		auth.Post("/login", routes.Login)
		auth.Get("/me", accessTokenVerifierMiddleware, routes.GetMe)
		auth.Get("/pending-users", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, routes.GetPendingUsers)
		auth.Post("/approve", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, routes.ApproveUser)
	}

	otp := app.Party("/api/otp")
	{
		otp.Post("/verify", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.VerifyOTP)
		otp.Post("/resend", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ResendOTP)
	}

	flights := app.Party("/api/flights")
	{
		flights.Get("/", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, routes.GetAllFlights)
		flights.Post("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.AddFlight)
		flights.Put("/{flightID:uint}/status", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.UpdateFlightStatus)
		flights.Get("/shipments", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.GetCarrierShipments)
	}

	shipments := app.Party("/api/shipments")
	{
		shipments.Post("/", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, routes.CreateShipment)
		shipments.Get("/", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, routes.GetSenderShipments)
		shipments.Post("/{shipmentID:uint}/cancel", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, routes.CancelShipment)
		shipments.Patch("/{shipmentID:uint}/transit", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.MarkInTransit)
	}

	payment := app.Party("/api/payment")
	{
		payment.Post("/initialize", accessTokenVerifierMiddleware, utils.SenderOnlyMiddleware, routes.InitializePayment)
		payment.Get("/verify/{reference:string}", routes.VerifyPayment)
		payment.Post("/release", routes.ReleasePayment)
	}

	// Public receiver endpoints: the tracking code is the credential
	app.Get("/api/track/{trackingCode:string}", routes.TrackShipment)
	app.Post("/api/confirm/{trackingCode:string}", routes.ConfirmDelivery)

	support := app.Party("/api/support")
	{
		support.Get("/user/{userID:uint}", accessTokenVerifierMiddleware, routes.GetUserMessages)
		support.Get("/agent/all", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, routes.GetAllMessagesForAgents)
		support.Post("/message", accessTokenVerifierMiddleware, routes.CreateMessage)
	}

	points := app.Party("/api/points")
	{
		points.Get("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.GetCarrierPoints)
	}

	carrierProfile := app.Party("/api/carrier/profile")
	{
		carrierProfile.Get("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.GetCarrierProfile)
		carrierProfile.Put("/", accessTokenVerifierMiddleware, utils.CarrierOnlyMiddleware, routes.UpdateCarrierProfile)
		carrierProfile.Post("/verify", accessTokenVerifierMiddleware, utils.AgentOnlyMiddleware, routes.VerifyCarrierIdentity)
	}

	app.Get("/ws", chat.ServeWS(routes.ChatHub))

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
