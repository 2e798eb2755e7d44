package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// FileHandler serves generated proposal PDFs from the files root.
type FileHandler struct {
	RootDir string
}

func NewFileHandler(rootDir string) *FileHandler {
	return &FileHandler{RootDir: rootDir}
}

func (h *FileHandler) resolve(c *gin.Context) (string, string, bool) {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad filepath"})
		return "", "", false
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad filepath"})
		return "", "", false
	}
	abs := filepath.Join(h.RootDir, name)
	if _, err := os.Stat(abs); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return "", "", false
	}
	return abs, name, true
}

func (h *FileHandler) Serve(c *gin.Context) {
	abs, name, ok := h.resolve(c)
	if !ok {
		return
	}
	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, name))
	c.File(abs)
}
