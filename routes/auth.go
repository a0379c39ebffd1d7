package routes

import (
	"strings"
	"time"

	"skyport-server/models"
	"skyport-server/services"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalID"`
	Role       string `json:"role" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func hashAndSaltPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Register creates either an agent or a marketplace user. Receivers are
// approved immediately; senders and carriers get an OTP by SMS and wait for
// agent approval.
func Register(ctx iris.Context) {
	var input RegisterInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	email := strings.ToLower(input.Email)
	if _, err := services.FindAccountByEmail(email); err == nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Email already registered.", ctx)
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.CreateInternalServerError(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if input.Role == string(models.RoleAgent) {
		agent := models.Agent{
			FullName: input.FullName,
			Email:    email,
			Password: hashedPassword,
		}
		if err := storage.DB.Create(&agent).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		tokenPair, err := utils.CreateTokenPair(agent.ID, models.RoleAgent)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(iris.Map{
			"id":           agent.ID,
			"role":         models.RoleAgent,
			"accessToken":  string(tokenPair.AccessToken),
			"refreshToken": string(tokenPair.RefreshToken),
		})
		return
	}

	role := models.Role(input.Role)
	if !role.Valid() {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Unknown role.", ctx)
		return
	}
	if role != models.RoleReceiver && !utils.ValidatePhoneNumber(input.Phone) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "A valid phone number is required.", ctx)
		return
	}

	user := models.User{
		FullName:   input.FullName,
		Email:      email,
		Password:   hashedPassword,
		Phone:      utils.NormalizePhoneNumber(input.Phone),
		NationalID: input.NationalID,
		Role:       role,
		IsApproved: role == models.RoleReceiver,
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if role != models.RoleReceiver {
		sendOTP(user.ID, user.Phone)
	}
	if role == models.RoleCarrier {
		storage.DB.Create(&models.CarrierProfile{UserID: user.ID})
	}

	tokenPair, err := utils.CreateTokenPair(user.ID, role)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"id":           user.ID,
		"role":         role,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func Login(ctx iris.Context) {
	var input LoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "Invalid email or password."
	account, err := services.FindAccountByEmail(strings.ToLower(input.Email))
	if err == gorm.ErrRecordNotFound {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(input.Password)) != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if account.Role == models.RoleSender || account.Role == models.RoleCarrier {
		if !account.PhoneVerified {
			utils.CreateError(iris.StatusForbidden, "Forbidden", "Please verify your phone number before logging in.", ctx)
			return
		}
		if !account.IsApproved {
			utils.CreateError(iris.StatusForbidden, "Forbidden", "Your account is pending agent approval.", ctx)
			return
		}
	}

	tokenPair, tokenErr := utils.CreateTokenPair(account.ID, account.Role)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{
		"id":           account.ID,
		"role":         account.Role,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

// GetMe returns the caller's profile from whichever table backs the token.
func GetMe(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	account, err := services.FindAccountByID(claims.ID, claims.Role)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(iris.Map{
		"id":            account.ID,
		"fullName":      account.FullName,
		"email":         account.Email,
		"phone":         account.Phone,
		"nationalID":    account.NationalID,
		"role":          account.Role,
		"phoneVerified": account.PhoneVerified,
		"isApproved":    account.IsApproved,
		"createdAt":     account.CreatedAt,
	})
}

// GetPendingUsers lists senders and carriers awaiting approval (agent only).
func GetPendingUsers(ctx iris.Context) {
	var users []models.User
	if err := storage.DB.
		Where("is_approved = ? AND role IN ?", false, []models.Role{models.RoleSender, models.RoleCarrier}).
		Select("id, full_name, email, phone, role, phone_verified").
		Find(&users).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(users)
}

type approveUserInput struct {
	UserID uint `json:"userId" validate:"required"`
}

// ApproveUser flips a pending sender/carrier to approved (agent only).
func ApproveUser(ctx iris.Context) {
	var input approveUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, input.UserID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	before := user.IsApproved
	if err := storage.DB.Model(&user).Update("is_approved", true).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.Audit(ctx, "user.approve", "user", user.ID, iris.Map{"isApproved": before}, iris.Map{"isApproved": true})
	ctx.JSON(iris.Map{"message": "User approved successfully."})
}

func sendOTP(userID uint, phone string) {
	otp := utils.GenerateOTP()
	key := otpKey(userID)
	storage.Redis.Set(bgCtx, key, otp, 5*time.Minute)
	services.SendSMS(phone, "Your Skyport verification code is "+otp)
}
