package handlers

import (
	"net/http"
	"strings"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/gin-gonic/gin"
)

type attachmentForm struct {
	ActivityID *uint  `json:"actividad_id"`
	Phase      string `json:"fase"`
	Reference  string `json:"referencia"`
}

// CreateAttachment registers an evidence reference against an order (and
// optionally one of its activities). The binary lives in the evidence
// service; only the reference is stored here.
func CreateAttachment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form attachmentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	phase := models.AttachmentPhase(strings.ToUpper(strings.TrimSpace(form.Phase)))
	switch phase {
	case models.PhaseBefore, models.PhaseDuring, models.PhaseAfter:
	default:
		writeError(c, apperr.Validation("fase", "phase must be BEFORE, DURING or AFTER"))
		return
	}
	if strings.TrimSpace(form.Reference) == "" {
		writeError(c, apperr.Validation("referencia", "reference is required"))
		return
	}

	var order models.WorkOrder
	if err := database.DB.First(&order, id).Error; err != nil {
		writeError(c, apperr.NotFound("order", id))
		return
	}
	if form.ActivityID != nil {
		var count int64
		if err := database.DB.Model(&models.Activity{}).
			Where("id = ? AND work_order_id = ?", *form.ActivityID, id).
			Count(&count).Error; err != nil {
			writeError(c, err)
			return
		}
		if count == 0 {
			writeError(c, apperr.NotFound("activity", *form.ActivityID))
			return
		}
	}

	att := models.Attachment{
		WorkOrderID: id,
		ActivityID:  form.ActivityID,
		Phase:       phase,
		Reference:   strings.TrimSpace(form.Reference),
	}
	if err := database.DB.Create(&att).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

// ListAttachments returns the evidence references of one order.
func ListAttachments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var order models.WorkOrder
	if err := database.DB.First(&order, id).Error; err != nil {
		writeError(c, apperr.NotFound("order", id))
		return
	}

	var atts []models.Attachment
	if err := database.DB.
		Where("work_order_id = ?", id).
		Order("created_at asc").
		Find(&atts).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, atts)
}
