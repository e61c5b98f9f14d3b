package middleware

import (
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func InjectWorker() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if widRaw := sess.Get("worker_id"); widRaw != nil {
			if wid, ok := widRaw.(uint); ok && wid > 0 {
				var worker models.Worker
				if err := database.DB.First(&worker, wid).Error; err == nil {
					c.Set("CurrentWorker", worker)
				}
			}
		}

		c.Next()
	}
}

// CurrentWorker returns the authenticated worker injected by InjectWorker.
func CurrentWorker(c *gin.Context) (models.Worker, bool) {
	v, ok := c.Get("CurrentWorker")
	if !ok {
		return models.Worker{}, false
	}
	w, ok := v.(models.Worker)
	return w, ok
}
