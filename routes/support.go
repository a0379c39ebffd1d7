package routes

import (
	"strings"

	"skyport-server/chat"
	"skyport-server/models"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

// GetUserMessages returns one room's history, oldest first. End users may
// only read their own room; agents may read any.
func GetUserMessages(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	userID, err := ctx.Params().GetUint("userID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid user id.", ctx)
		return
	}
	if claims.Role != models.RoleAgent && claims.ID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	msgs, err := ChatHub.History(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(msgs)
}

// GetAllMessagesForAgents is the agent inbox: every room with its latest
// message and message count, unassigned rooms included.
func GetAllMessagesForAgents(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	agentID := claims.ID
	list, err := chat.ConversationSummaries(&agentID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(list)
}

type createMessageInput struct {
	UserID  uint   `json:"userId" validate:"required"`
	AgentID *uint  `json:"agentId"`
	SentBy  string `json:"sentBy" validate:"required,oneof=user agent"`
	Message string `json:"message" validate:"required"`
}

// CreateMessage is the non-realtime fallback. It runs through the same
// persist-then-broadcast path as the websocket event, so connected clients
// still see the message live.
func CreateMessage(ctx iris.Context) {
	var input createMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	trimmed := strings.TrimSpace(input.Message)
	if trimmed == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Message cannot be empty.", ctx)
		return
	}

	msg, err := ChatHub.SaveMessage(input.UserID, input.AgentID, input.SentBy, trimmed)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(msg)
}
