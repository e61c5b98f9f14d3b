package handlers

import (
	"errors"
	"net/http"

	"ordenes-backend/internal/database"
	"ordenes-backend/internal/lifecycle"
	"ordenes-backend/internal/middleware"
	"ordenes-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListOrders returns orders, optionally filtered by lifecycle state:
// /api/ordenes?estado=PENDING. The draft/pending/historical "views" are the
// same entity behind one parameterized query.
func ListOrders(c *gin.Context) {
	q := database.DB.Preload("Activities").Order("order_number asc")

	switch estado := c.Query("estado"); models.OrderState(estado) {
	case "":
	case models.OrderDraft, models.OrderPending, models.OrderFinished:
		q = q.Where("state = ?", estado)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "estado desconocido", "campo": "estado"})
		return
	}
	if code := c.Query("codigo_trabajador"); code != "" {
		q = q.Where("worker_code = ?", code)
	}

	var orders []models.WorkOrder
	if err := q.Find(&orders).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func CreateOrder(c *gin.Context) {
	var in lifecycle.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}
	if w, ok := middleware.CurrentWorker(c); ok {
		in.SupervisorName = w.Name
		in.SupervisorCode = w.Code
	}

	order, err := lifecycle.Create(database.DB, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var order models.WorkOrder
	err := database.DB.Preload("Activities").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "orden no encontrada"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func UpdateOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in lifecycle.UpdateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	order, err := lifecycle.Update(database.DB, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder rejects a draft: hard delete, only legal while DRAFT.
func DeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := lifecycle.Reject(database.DB, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "orden rechazada"})
}

type approveForm struct {
	WorkerCode string `json:"codigo_trabajador"`
}

// ApproveOrder assigns a worker and moves the order to PENDING.
func ApproveOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form approveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	order, err := lifecycle.Approve(database.DB, id, form.WorkerCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// FinishOrder closes a PENDING order and records the total active time of
// its activities.
func FinishOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	order, err := lifecycle.Finish(database.DB, id, cfg.FinishRequiresActivitiesDone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
