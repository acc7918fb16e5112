package controllers

import (
	"net/http"

	"bloxmate_server/models"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type JoinRequestController struct {
	JoinRequestService *services.JoinRequestService
	Validate           *validator.Validate
}

// SendJoinRequestHandler creates a pending join request.
func (c *JoinRequestController) SendJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID   string              `json:"groupId" validate:"required"`
		Requester models.UserIdentity `json:"requester" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	request, err := c.JoinRequestService.SendJoinRequest(r.Context(), req.GroupID, req.Requester)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, request)
}

// ApproveJoinRequestHandler adds the requester to the group.
func (c *JoinRequestController) ApproveJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	requestID := mux.Vars(r)["requestId"]
	alreadyMember, err := c.JoinRequestService.ApproveJoinRequest(r.Context(), requestID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]bool{"alreadyMember": alreadyMember})
}

// RejectJoinRequestHandler marks the request rejected.
func (c *JoinRequestController) RejectJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	requestID := mux.Vars(r)["requestId"]
	if err := c.JoinRequestService.RejectJoinRequest(r.Context(), requestID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// GetGroupRequestsHandler lists a group's pending requests for its creator.
func (c *JoinRequestController) GetGroupRequestsHandler(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	callerID := r.URL.Query().Get("userId")

	requests, err := c.JoinRequestService.PendingRequestsForGroup(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, requests)
}
