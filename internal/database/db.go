package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"ordenes-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(driver, dsn string) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		DB, err = open(driver, dsn)
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	createDefaultAdmin()
}

func open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres", "":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unknown DB driver %q", driver)
	}
}

// Migrate creates or updates every table this backend owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Worker{},
		&models.WorkOrder{},
		&models.Activity{},
		&models.AuditEvent{},
		&models.Attachment{},
	)
}

// admin only from code/config; operarios are created on first login
func createDefaultAdmin() {
	code := os.Getenv("ADMIN_CODE")
	if code == "" {
		code = "ADMIN"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := DB.Model(&models.Worker{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check admin worker: %v", err)
		return
	}
	if count > 0 {
		// already seeded
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash default admin password: %v", err)
		return
	}

	admin := models.Worker{
		Name:         "Administrador",
		Code:         code,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("failed to create default admin: %v", err)
		return
	}

	log.Printf("created default admin worker: %s", code)
}
