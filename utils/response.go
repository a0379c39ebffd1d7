package utils

import (
	"log"

	"github.com/kataras/iris/v12"
)

// All client-facing errors share the {error, message} shape. Internal
// details stay in the server log.

func CreateError(statusCode int, errCode string, message string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": errCode, "message": message})
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "Resource not found.", ctx)
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "Something went wrong.", ctx)
}

func CreateInvalidState(message string, ctx iris.Context) {
	CreateError(iris.StatusConflict, "Invalid State", message, ctx)
}

func CreateUpstreamFailure(message string, ctx iris.Context) {
	CreateError(iris.StatusBadGateway, "Upstream Failure", message, ctx)
}

func CreateForbidden(ctx iris.Context) {
	CreateError(iris.StatusForbidden, "Forbidden", "Access denied: insufficient permissions.", ctx)
}

// HandleValidationErrors reports body-decoding and validator failures as 400s.
func HandleValidationErrors(err error, ctx iris.Context) {
	log.Printf("validation error: %v", err)
	CreateError(iris.StatusBadRequest, "Validation Error", "Invalid or missing input.", ctx)
}
