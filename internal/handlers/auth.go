package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type operarioLogin struct {
	Code string `json:"codigo"`
	Name string `json:"nombre"`
}

// LoginOperario logs a field worker in by code. Unknown codes are created on
// the fly; a known code with a new name gets the name refreshed.
func LoginOperario(c *gin.Context) {
	var form operarioLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}
	form.Code = strings.TrimSpace(form.Code)
	form.Name = strings.TrimSpace(form.Name)
	if form.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "el código es obligatorio", "campo": "codigo"})
		return
	}

	var worker models.Worker
	err := database.DB.Where("code = ?", form.Code).First(&worker).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := form.Name
		if name == "" {
			name = "Sin Nombre"
		}
		worker = models.Worker{Name: name, Code: form.Code, Role: models.RoleOperario}
		if err := database.DB.Create(&worker).Error; err != nil {
			writeError(c, err)
			return
		}
	case err != nil:
		writeError(c, err)
		return
	default:
		if form.Name != "" && worker.Name != form.Name {
			worker.Name = form.Name
			if err := database.DB.Save(&worker).Error; err != nil {
				writeError(c, err)
				return
			}
		}
	}

	sess := sessions.Default(c)
	sess.Set("worker_id", worker.ID)
	sess.Set("role", string(worker.Role))
	_ = sess.Save()

	c.JSON(http.StatusOK, worker)
}

type adminLogin struct {
	Code     string `json:"codigo"`
	Password string `json:"password"`
}

// LoginAdmin verifies a supervisor account against its stored hash.
func LoginAdmin(c *gin.Context) {
	var form adminLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}
	if form.Code == "" || form.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "faltan credenciales"})
		return
	}

	var worker models.Worker
	if err := database.DB.
		Where("code = ? AND role = ?", form.Code, models.RoleAdmin).
		First(&worker).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "usuario o contraseña incorrectos"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(worker.PasswordHash), []byte(form.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "usuario o contraseña incorrectos"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("worker_id", worker.ID)
	sess.Set("role", string(worker.Role))
	_ = sess.Save()

	c.JSON(http.StatusOK, worker)
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"mensaje": "sesión cerrada"})
}
