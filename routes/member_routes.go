package routes

import (
	"bloxmate_server/controllers"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RegisterMemberRoutes wires the membership management endpoints.
func RegisterMemberRoutes(r *mux.Router, membershipService *services.MembershipService) {
	controller := &controllers.MemberController{
		MembershipService: membershipService,
		Validate:          validator.New(),
	}

	r.HandleFunc("/api/groups/{groupId}/leave", controller.LeaveGroupHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/remove-member", controller.RemoveMemberHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/make-creator", controller.MakeCreatorHandler).Methods("POST")
}
