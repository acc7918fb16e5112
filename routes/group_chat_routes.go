package routes

import (
	"bloxmate_server/controllers"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RegisterGroupChatRoutes wires the group chat endpoints.
func RegisterGroupChatRoutes(r *mux.Router, chatService *services.GroupChatService) {
	controller := &controllers.GroupChatController{
		ChatService: chatService,
		Validate:    validator.New(),
	}

	r.HandleFunc("/api/groups/{groupId}/messages", controller.SendMessageHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/messages", controller.GetMessagesHandler).Methods("GET")
	r.HandleFunc("/api/groups/{groupId}/read", controller.MarkReadHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/mute", controller.MuteGroupHandler).Methods("POST")
	r.HandleFunc("/api/groups/{groupId}/mute-member", controller.MuteMemberHandler).Methods("POST")
}
