package services

import "bloxmate_server/models"

// HasPermission reports whether userID may perform action on the group.
// There is no role hierarchy: every privileged action belongs to the creator,
// messaging and viewing to members. Pure function, no I/O.
func HasPermission(g *models.Group, userID string, action models.Action) bool {
	if g == nil || userID == "" {
		return false
	}

	switch action {
	case models.ActionDeleteGroup,
		models.ActionAddMember,
		models.ActionRemoveMember,
		models.ActionMakeCreator,
		models.ActionEditGroup,
		models.ActionMuteMember:
		return userID == g.CreatedBy

	case models.ActionSendMessage:
		return g.HasMember(userID) && !g.IsMutedMember(userID)

	case models.ActionViewGroup:
		return g.HasMember(userID)
	}

	return false
}
