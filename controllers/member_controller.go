package controllers

import (
	"net/http"

	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type MemberController struct {
	MembershipService *services.MembershipService
	Validate          *validator.Validate
}

// LeaveGroupHandler removes the caller from the group.
func (c *MemberController) LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.MembershipService.LeaveGroup(r.Context(), groupID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// RemoveMemberHandler lets the creator remove another member.
func (c *MemberController) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"memberId" validate:"required"`
		UserID   string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.MembershipService.RemoveMember(r.Context(), groupID, req.MemberID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// MakeCreatorHandler transfers the creator role to another member.
func (c *MemberController) MakeCreatorHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId" validate:"required"`
		UserID   string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.MembershipService.MakeMemberCreator(r.Context(), groupID, req.TargetID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}
