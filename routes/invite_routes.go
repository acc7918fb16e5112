package routes

import (
	"bloxmate_server/controllers"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RegisterInviteRoutes wires the invitation endpoints.
func RegisterInviteRoutes(r *mux.Router, inviteService *services.InviteService) {
	controller := &controllers.InviteController{
		InviteService: inviteService,
		Validate:      validator.New(),
	}

	r.HandleFunc("/api/invites", controller.SendInviteHandler).Methods("POST")
	r.HandleFunc("/api/invites/{inviteId}/accept", controller.AcceptInviteHandler).Methods("POST")
	r.HandleFunc("/api/invites/{inviteId}/decline", controller.DeclineInviteHandler).Methods("POST")
	r.HandleFunc("/api/users/{userId}/invites", controller.GetPendingInvitesHandler).Methods("GET")
	r.HandleFunc("/api/groups/{groupId}/invites", controller.GetGroupInvitesHandler).Methods("GET")
}
