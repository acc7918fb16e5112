package controllers

import (
	"net/http"

	"bloxmate_server/models"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type InviteController struct {
	InviteService *services.InviteService
	Validate      *validator.Validate
}

// SendInviteHandler creates a pending invitation.
func (c *InviteController) SendInviteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID       string              `json:"groupId" validate:"required"`
		InvitedUserID string              `json:"invitedUserId" validate:"required"`
		Inviter       models.UserIdentity `json:"inviter" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	invite, err := c.InviteService.SendInvite(r.Context(), req.GroupID, req.InvitedUserID, req.Inviter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, invite)
}

// AcceptInviteHandler joins the caller to the group behind the invite.
func (c *InviteController) AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	inviteID := mux.Vars(r)["inviteId"]
	if err := c.InviteService.AcceptInvite(r.Context(), inviteID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// DeclineInviteHandler marks the invite declined.
func (c *InviteController) DeclineInviteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	inviteID := mux.Vars(r)["inviteId"]
	if err := c.InviteService.DeclineInvite(r.Context(), inviteID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// GetPendingInvitesHandler lists the caller's actionable invites.
func (c *InviteController) GetPendingInvitesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	invites, err := c.InviteService.PendingInvitesForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, invites)
}

// GetGroupInvitesHandler lists a group's invites for its creator.
func (c *InviteController) GetGroupInvitesHandler(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	callerID := r.URL.Query().Get("userId")

	invites, err := c.InviteService.InvitesForGroup(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, invites)
}
