package routes

import (
	"context"
	"fmt"

	"skyport-server/models"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
)

var bgCtx = context.Background()

func otpKey(userID uint) string {
	return fmt.Sprintf("otp:user:%d", userID)
}

type verifyOTPInput struct {
	Code string `json:"code" validate:"required,len=6"`
}

// VerifyOTP checks the caller's code against the redis-stored one and marks
// the phone verified. Codes expire after five minutes.
func VerifyOTP(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input verifyOTPInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	key := otpKey(userID)
	stored, err := storage.Redis.Get(bgCtx, key).Result()
	if err != nil || stored != input.Code {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid or expired code.", ctx)
		return
	}
	storage.Redis.Del(bgCtx, key)

	if err := storage.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("phone_verified", true).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"message": "Phone verified."})
}

// ResendOTP issues a fresh code to the caller's registered phone.
func ResendOTP(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if user.PhoneVerified {
		utils.CreateInvalidState("Phone already verified.", ctx)
		return
	}
	sendOTP(user.ID, user.Phone)
	ctx.JSON(iris.Map{"message": "Code sent."})
}
