package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/config"

	"github.com/gin-gonic/gin"
)

var cfg *config.Config

// Configure hands the handlers their runtime flags; called once by the
// router build.
func Configure(c *config.Config) { cfg = c }

func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		c.JSON(status, gin.H{"error": "error interno"})
		return
	}

	body := gin.H{"error": err.Error()}
	var v *apperr.ValidationError
	if errors.As(err, &v) && v.Field != "" {
		body["campo"] = v.Field
	}
	c.JSON(status, body)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return 0, false
	}
	return uint(id), true
}
