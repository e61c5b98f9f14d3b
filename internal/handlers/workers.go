package handlers

import (
	"net/http"

	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ListWorkers returns all registered workers, optionally filtered by code:
// /api/trabajadores?codigo=OP-505
func ListWorkers(c *gin.Context) {
	q := database.DB.Order("code asc")
	if code := c.Query("codigo"); code != "" {
		q = q.Where("code = ?", code)
	}

	var workers []models.Worker
	if err := q.Find(&workers).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workers)
}
