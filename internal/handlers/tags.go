package handlers

import (
	"net/http"

	"projecthub/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TagHandler struct {
	tagService services.TagService
}

func NewTagHandler(tagService services.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

type createTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

func (h *TagHandler) CreateTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tagService.Create(c.Request.Context(), projectID, req.Name, req.Color, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) ListTags(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	tags, err := h.tagService.ListByProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) DeleteTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.tagService.Delete(c.Request.Context(), tagID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TagHandler) AttachTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "tagId")
	if !ok {
		return
	}

	if err := h.tagService.Attach(c.Request.Context(), taskID, tagID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tag attached"})
}

func (h *TagHandler) DetachTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "tagId")
	if !ok {
		return
	}

	if err := h.tagService.Detach(c.Request.Context(), taskID, tagID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tag detached"})
}
