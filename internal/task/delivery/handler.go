package delivery

import (
	"errors"
	"log"
	"net/http"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// RegisterRoutes mounts the task endpoints on an authenticated group
func (h *TaskHandler) RegisterRoutes(r *gin.RouterGroup) {
	tasks := r.Group("/tasks")
	{
		tasks.GET("", h.GetTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/:id", h.GetTaskByID)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.PATCH("/:id/status", h.UpdateTaskStatus)
		tasks.POST("/:id/complete", h.CompleteTask)
		tasks.DELETE("/:id", h.DeleteTask)

		tasks.GET("/:id/subtasks", h.GetSubtasks)
		tasks.POST("/:id/subtasks", h.CreateSubtask)
		tasks.GET("/:id/subtasks/:subtaskId", h.GetSubtask)
		tasks.PUT("/:id/subtasks/:subtaskId", h.UpdateSubtask)
	}
}

// GetTasks returns every task visible to the authenticated user
// GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.GetString("userID")

	tasks, err := h.taskUsecase.ListVisibleTasks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTaskByID returns a specific task
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("id")

	task, err := h.taskUsecase.GetTaskDetail(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// CreateTask creates a new task owned by the caller
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req usecase.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.CreatorID = c.GetString("userID")
	req.ParentTaskID = ""

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates an existing task
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("id")

	var updates usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.UpdateTask(c.Request.Context(), taskID, updates, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus is a convenience endpoint to just update status
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := usecase.TaskUpdateRequest{
		Status: &req.Status,
	}

	task, err := h.taskUsecase.UpdateTask(c.Request.Context(), taskID, updates, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CompleteTask marks the current instance done
// POST /api/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("id")

	result, err := h.taskUsecase.CompleteTask(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteTask deletes a task and its subtasks
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("id")

	if err := h.taskUsecase.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// GetSubtasks lists the subtasks of a task
// GET /api/tasks/:id/subtasks
func (h *TaskHandler) GetSubtasks(c *gin.Context) {
	userID := c.GetString("userID")

	subtasks, err := h.taskUsecase.ListSubtasks(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subtasks": subtasks,
		"total":    len(subtasks),
	})
}

// CreateSubtask creates a subtask under the task in the path
// POST /api/tasks/:id/subtasks
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	var req usecase.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.CreatorID = c.GetString("userID")
	req.ParentTaskID = c.Param("id")

	subtask, err := h.taskUsecase.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subtask)
}

// GetSubtask returns one subtask
// GET /api/tasks/:id/subtasks/:subtaskId
func (h *TaskHandler) GetSubtask(c *gin.Context) {
	userID := c.GetString("userID")

	subtask, err := h.taskUsecase.GetSubtask(c.Request.Context(), c.Param("id"), c.Param("subtaskId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if subtask == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		return
	}

	c.JSON(http.StatusOK, subtask)
}

// UpdateSubtask updates one subtask
// PUT /api/tasks/:id/subtasks/:subtaskId
func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	userID := c.GetString("userID")

	var updates usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subtask, err := h.taskUsecase.UpdateSubtask(c.Request.Context(), c.Param("id"), c.Param("subtaskId"), updates, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if subtask == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		return
	}

	c.JSON(http.StatusOK, subtask)
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, domain.ErrAlreadyRetired):
		c.JSON(http.StatusConflict, gin.H{"error": "task was completed in the meantime, reload it"})
	default:
		log.Printf("[TaskHandler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
