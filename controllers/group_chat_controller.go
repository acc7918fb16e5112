package controllers

import (
	"net/http"
	"strconv"

	"bloxmate_server/models"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type GroupChatController struct {
	ChatService *services.GroupChatService
	Validate    *validator.Validate
}

// SendMessageHandler posts a message into the group.
func (c *GroupChatController) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender models.UserIdentity `json:"sender" validate:"required"`
		Text   string              `json:"text" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	msg, err := c.ChatService.SendGroupMessage(r.Context(), groupID, req.Sender, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, msg)
}

// GetMessagesHandler returns recent messages, oldest first.
func (c *GroupChatController) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	userID := r.URL.Query().Get("userId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := c.ChatService.GetGroupMessages(r.Context(), groupID, userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, messages)
}

// MarkReadHandler zeroes the caller's unread count.
func (c *GroupChatController) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.ChatService.MarkGroupRead(r.Context(), groupID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// MuteGroupHandler flips the caller's own notification mute.
func (c *GroupChatController) MuteGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
		Muted  *bool  `json:"muted" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.ChatService.SetGroupMuted(r.Context(), groupID, req.UserID, *req.Muted); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// MuteMemberHandler lets the creator mute or unmute a member's sending.
func (c *GroupChatController) MuteMemberHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId" validate:"required"`
		UserID   string `json:"userId" validate:"required"`
		Muted    *bool  `json:"muted" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.ChatService.SetMemberMuted(r.Context(), groupID, req.TargetID, req.UserID, *req.Muted); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}
