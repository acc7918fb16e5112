package routes

import (
	"bloxmate_server/controllers"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RegisterJoinRequestRoutes wires the join request endpoints.
func RegisterJoinRequestRoutes(r *mux.Router, joinRequestService *services.JoinRequestService) {
	controller := &controllers.JoinRequestController{
		JoinRequestService: joinRequestService,
		Validate:           validator.New(),
	}

	r.HandleFunc("/api/join-requests", controller.SendJoinRequestHandler).Methods("POST")
	r.HandleFunc("/api/join-requests/{requestId}/approve", controller.ApproveJoinRequestHandler).Methods("POST")
	r.HandleFunc("/api/join-requests/{requestId}/reject", controller.RejectJoinRequestHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/join-requests", controller.GetGroupRequestsHandler).Methods("GET")
}
