package routes

import (
	"bloxmate_server/controllers"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RegisterGroupRoutes wires the group lifecycle endpoints.
func RegisterGroupRoutes(r *mux.Router, groupService *services.GroupService) {
	controller := &controllers.GroupController{
		GroupService: groupService,
		Validate:     validator.New(),
	}

	r.HandleFunc("/api/groups", controller.CreateGroupHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}", controller.GetGroupHandler).Methods("GET")
	r.HandleFunc("/api/groups/{groupId}", controller.UpdateGroupHandler).Methods("PATCH")
	r.HandleFunc("/api/groups/{groupId}/delete", controller.DeleteGroupHandler).Methods("POST")
	r.HandleFunc("/api/users/{userId}/groups", controller.ListUserGroupsHandler).Methods("GET")
}
