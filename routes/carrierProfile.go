package routes

import (
	"encoding/json"
	"fmt"

	"skyport-server/models"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

// GetCarrierProfile returns the caller's carrier profile, creating an empty
// one on first access.
func GetCarrierProfile(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)

	var profile models.CarrierProfile
	if err := storage.DB.Where("user_id = ?", carrierID).First(&profile).Error; err != nil {
		profile = models.CarrierProfile{UserID: carrierID}
		storage.DB.Create(&profile)
	}
	ctx.JSON(profile)
}

type updateCarrierProfileInput struct {
	Airline       string   `json:"airline"`
	Bio           string   `json:"bio"`
	Routes        []string `json:"routes"`
	IDDocumentB64 string   `json:"idDocument"` // base64 image
	SelfieB64     string   `json:"selfie"`     // base64 image
}

// UpdateCarrierProfile updates profile fields and uploads verification
// documents when provided. A failed upload is reported as an upstream error
// and leaves the stored URLs untouched.
func UpdateCarrierProfile(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)

	var input updateCarrierProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var profile models.CarrierProfile
	if err := storage.DB.Where("user_id = ?", carrierID).First(&profile).Error; err != nil {
		profile = models.CarrierProfile{UserID: carrierID}
		if err := storage.DB.Create(&profile).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	updates := map[string]interface{}{
		"airline": input.Airline,
		"bio":     input.Bio,
	}
	if input.Routes != nil {
		if routesJSON, err := json.Marshal(input.Routes); err == nil {
			updates["routes"] = datatypes.JSON(routesJSON)
		}
	}

	if input.IDDocumentB64 != "" {
		url := storage.UploadBase64Document(input.IDDocumentB64, fmt.Sprintf("carrier-%d-id", carrierID))
		if url == "" {
			utils.CreateUpstreamFailure("Document upload failed.", ctx)
			return
		}
		if profile.IDDocumentURL != "" {
			storage.DeleteDocument(profile.IDDocumentURL)
		}
		updates["id_document_url"] = url
	}
	if input.SelfieB64 != "" {
		url := storage.UploadBase64Document(input.SelfieB64, fmt.Sprintf("carrier-%d-selfie", carrierID))
		if url == "" {
			utils.CreateUpstreamFailure("Document upload failed.", ctx)
			return
		}
		if profile.SelfieURL != "" {
			storage.DeleteDocument(profile.SelfieURL)
		}
		updates["selfie_url"] = url
	}

	if err := storage.DB.Model(&profile).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(profile)
}

type verifyCarrierInput struct {
	UserID uint `json:"userId" validate:"required"`
}

// VerifyCarrierIdentity lets an agent mark a carrier's national ID as
// checked against the uploaded documents.
func VerifyCarrierIdentity(ctx iris.Context) {
	var input verifyCarrierInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, input.UserID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if user.Role != models.RoleCarrier {
		utils.CreateInvalidState("User is not a carrier.", ctx)
		return
	}
	if err := storage.DB.Model(&user).Update("national_id_verified", true).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.Audit(ctx, "carrier.verify", "user", user.ID, nil, iris.Map{"nationalIDVerified": true})
	ctx.JSON(iris.Map{"message": "Carrier identity verified."})
}
