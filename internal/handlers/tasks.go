package handlers

import (
	"net/http"
	"time"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskResponse is the wire shape of a task. Completed is computed from
// the status; it has no storage of its own.
type TaskResponse struct {
	ID                uuid.UUID                `json:"id"`
	ProjectID         uuid.UUID                `json:"project_id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	DueDate           *time.Time               `json:"due_date,omitempty"`
	Status            models.TaskStatus        `json:"status"`
	Completed         bool                     `json:"completed"`
	Priority          models.TaskPriority      `json:"priority"`
	RecurrencePattern models.RecurrencePattern `json:"recurrence_pattern"`
	RecurrenceEndDate *time.Time               `json:"recurrence_end_date,omitempty"`
	AssignedToID      *uuid.UUID               `json:"assigned_to_id,omitempty"`
	AssignedToEmail   string                   `json:"assigned_to_email,omitempty"`
	Tags              []models.Tag             `json:"tags"`
	DependsOnIDs      []uuid.UUID              `json:"depends_on_ids"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

func newTaskResponse(task *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:                task.ID,
		ProjectID:         task.ProjectID,
		Title:             task.Title,
		Description:       task.Description,
		DueDate:           task.DueDate,
		Status:            task.Status,
		Completed:         task.Completed(),
		Priority:          task.Priority,
		RecurrencePattern: task.RecurrencePattern,
		RecurrenceEndDate: task.RecurrenceEndDate,
		AssignedToID:      task.AssignedToID,
		Tags:              task.Tags,
		DependsOnIDs:      make([]uuid.UUID, 0, len(task.DependsOn)),
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []models.Tag{}
	}
	if task.AssignedTo != nil {
		resp.AssignedToEmail = task.AssignedTo.Email
	}
	for _, dep := range task.DependsOn {
		resp.DependsOnIDs = append(resp.DependsOnIDs, dep.ID)
	}
	return resp
}

type createTaskRequest struct {
	Title             string                   `json:"title" binding:"required"`
	Description       string                   `json:"description"`
	DueDate           *time.Time               `json:"due_date"`
	Priority          models.TaskPriority      `json:"priority"`
	RecurrencePattern models.RecurrencePattern `json:"recurrence_pattern"`
	RecurrenceEndDate *time.Time               `json:"recurrence_end_date"`
	TagIDs            []uuid.UUID              `json:"tag_ids"`
	DependsOnIDs      []uuid.UUID              `json:"depends_on_ids"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), projectID, services.CreateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           req.DueDate,
		Priority:          req.Priority,
		RecurrencePattern: req.RecurrencePattern,
		RecurrenceEndDate: req.RecurrenceEndDate,
		TagIDs:            req.TagIDs,
		DependsOnIDs:      req.DependsOnIDs,
	}, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListByProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TaskResponse, len(tasks))
	for i := range tasks {
		responses[i] = newTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, responses)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	DueDate     *time.Time           `json:"due_date"`
	Priority    *models.TaskPriority `json:"priority"`
	Completed   *bool                `json:"completed"`
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), taskID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.UpdateStatus(c.Request.Context(), taskID, req.Status, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

type assignRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" binding:"required"`
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Assign(c.Request.Context(), taskID, req.AssigneeID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) UnassignTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Unassign(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

type dependencyRequest struct {
	DependsOnID uuid.UUID `json:"depends_on_id" binding:"required"`
}

func (h *TaskHandler) AddDependency(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.taskService.AddDependency(c.Request.Context(), taskID, req.DependsOnID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "dependency added"})
}

func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dependsOnID, ok := pathUUID(c, "dependsOnId")
	if !ok {
		return
	}

	if err := h.taskService.RemoveDependency(c.Request.Context(), taskID, dependsOnID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dependency removed"})
}

func (h *TaskHandler) GetBlockers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	blocked, err := h.taskService.BlockedBy(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TaskResponse, len(blocked))
	for i := range blocked {
		responses[i] = newTaskResponse(&blocked[i])
	}
	c.JSON(http.StatusOK, responses)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), taskID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type bulkTaskRequest struct {
	TaskIDs []uuid.UUID `json:"task_ids" binding:"required"`
}

func (h *TaskHandler) BulkComplete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req bulkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completed, err := h.taskService.BulkComplete(c.Request.Context(), req.TaskIDs, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed_ids": completed})
}

func (h *TaskHandler) BulkDelete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req bulkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.taskService.BulkDelete(c.Request.Context(), req.TaskIDs, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_ids": deleted})
}
