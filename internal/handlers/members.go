package handlers

import (
	"net/http"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	membershipService services.MembershipService
}

func NewMemberHandler(membershipService services.MembershipService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService}
}

func (h *MemberHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type addMemberRequest struct {
	Email string             `json:"email" binding:"required,email"`
	Role  models.ProjectRole `json:"role" binding:"required"`
}

func (h *MemberHandler) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.membershipService.AddMember(c.Request.Context(), projectID, req.Email, req.Role, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

type updateRoleRequest struct {
	Role models.ProjectRole `json:"role" binding:"required"`
}

func (h *MemberHandler) UpdateRole(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.membershipService.UpdateRole(c.Request.Context(), projectID, targetID, req.Role, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}

	if err := h.membershipService.RemoveMember(c.Request.Context(), projectID, targetID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
