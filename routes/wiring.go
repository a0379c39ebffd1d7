package routes

import (
	"skyport-server/chat"
	"skyport-server/services"
)

// Shared collaborators, set by main after the environment is loaded.
// Tests swap these for stubs.
var (
	Gateway *services.PaymentGateway
	ChatHub *chat.Hub
)
