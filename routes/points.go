package routes

import (
	"skyport-server/models"
	"skyport-server/storage"

	"github.com/kataras/iris/v12"
)

// GetCarrierPoints returns the caller's reward balance. Points only move
// inside the delivery-confirmation transaction.
func GetCarrierPoints(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)

	var profile models.CarrierProfile
	if err := storage.DB.Where("user_id = ?", carrierID).First(&profile).Error; err != nil {
		ctx.JSON(iris.Map{"points": 0})
		return
	}
	ctx.JSON(iris.Map{"points": profile.Points})
}
