package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"ordenes-backend/internal/database"
	"ordenes-backend/internal/export"
	"ordenes-backend/internal/importer"

	"github.com/gin-gonic/gin"
)

// ImportUpload ingests a planning export (multipart field "archivo", .xlsx
// or .csv) and answers with the per-batch report. Bad rows never abort the
// batch; they come back as diagnostics.
func ImportUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falta el archivo"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	var header []string
	var rows [][]string
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".xlsx":
		header, rows, err = importer.ReadXLSX(f)
	case ".csv":
		header, rows, err = importer.ReadCSV(f)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "formato no soportado; use .xlsx o .csv"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := importer.Reconciler{
		DB:                database.DB,
		OverwriteNonDraft: cfg.ImportOverwriteNonDraft,
	}
	c.JSON(http.StatusOK, rec.Run(header, rows))
}

// Export streams the report over FINISHED orders: ?formato=csv (default) or
// ?formato=xlsx.
func Export(c *gin.Context) {
	rows, err := export.Rows(database.DB)
	if err != nil {
		writeError(c, err)
		return
	}

	switch c.DefaultQuery("formato", "csv") {
	case "csv":
		c.Header("Content-Disposition", `attachment; filename="ordenes_finalizadas.csv"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, rows); err != nil {
			_ = c.Error(fmt.Errorf("export csv: %w", err))
		}
	case "xlsx":
		c.Header("Content-Disposition", `attachment; filename="ordenes_finalizadas.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		if err := export.WriteXLSX(c.Writer, rows); err != nil {
			_ = c.Error(fmt.Errorf("export xlsx: %w", err))
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "formato desconocido", "campo": "formato"})
	}
}
