package handlers

import (
	"net/http"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type inviteRequest struct {
	Email string             `json:"email" binding:"required,email"`
	Role  models.ProjectRole `json:"role" binding:"required"`
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invitation, err := h.invitationService.Invite(c.Request.Context(), projectID, req.Email, req.Role, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

func (h *InvitationHandler) PendingForUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invitations, err := h.invitationService.PendingForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}

func (h *InvitationHandler) ListForProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListForProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}

func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	invitationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	member, err := h.invitationService.Accept(c.Request.Context(), invitationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *InvitationHandler) Decline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	invitationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.Decline(c.Request.Context(), invitationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invitation declined"})
}

func (h *InvitationHandler) Cancel(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	invitationID, ok := pathUUID(c, "invitationId")
	if !ok {
		return
	}

	if err := h.invitationService.Cancel(c.Request.Context(), invitationID, projectID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invitation cancelled"})
}

func (h *InvitationHandler) GenerateInviteCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	code, err := h.invitationService.GenerateInviteCode(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite_code": code})
}

type joinRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

func (h *InvitationHandler) JoinByCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.invitationService.JoinByCode(c.Request.Context(), req.InviteCode, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}
