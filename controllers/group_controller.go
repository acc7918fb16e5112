package controllers

import (
	"net/http"

	"bloxmate_server/models"
	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type GroupController struct {
	GroupService *services.GroupService
	Validate     *validator.Validate
}

// CreateGroupHandler creates a group and fans out the initial invitations.
func (c *GroupController) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Creator     models.UserIdentity            `json:"creator" validate:"required"`
		Name        string                         `json:"name" validate:"required"`
		Description string                         `json:"description" validate:"required"`
		Avatar      string                         `json:"avatar"`
		MemberIDs   []string                       `json:"memberIds" validate:"required,min=1"`
		Profiles    map[string]models.UserIdentity `json:"profiles"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	group, err := c.GroupService.CreateGroup(r.Context(), services.CreateGroupParams{
		Creator:         req.Creator,
		Name:            req.Name,
		Description:     req.Description,
		Avatar:          req.Avatar,
		InviteeIDs:      req.MemberIDs,
		InviteeProfiles: req.Profiles,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, group)
}

// GetGroupHandler returns a group to one of its members.
func (c *GroupController) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	callerID := r.URL.Query().Get("userId")

	group, err := c.GroupService.GetGroup(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, group)
}

// UpdateGroupHandler lets the creator edit name, description and avatar.
func (c *GroupController) UpdateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId" validate:"required"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Avatar      string `json:"avatar"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.GroupService.UpdateGroupInfo(r.Context(), groupID, req.UserID, req.Name, req.Description, req.Avatar); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// DeleteGroupHandler deletes a group with full cross-store cleanup.
func (c *GroupController) DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if !decodeAndValidate(w, r, c.Validate, &req) {
		return
	}

	groupID := mux.Vars(r)["groupId"]
	if err := c.GroupService.DeleteGroup(r.Context(), groupID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// ListUserGroupsHandler returns the caller's group list projection.
func (c *GroupController) ListUserGroupsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	metas, err := c.GroupService.ListUserGroups(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, metas)
}
