package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

type HelvaultHandler struct {
	client         *worker.Client
	maxUploadBytes int64
}

func NewHelvaultHandler(client *worker.Client, maxUploadBytes int64) *HelvaultHandler {
	return &HelvaultHandler{
		client:         client,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload imports a Helvault export sent either as the multipart field "file"
// or as the raw request body
func (h *HelvaultHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	data, source, err := h.readExport(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no Helvault file provided"})
		return
	}

	summary, err := h.client.LoadHelvault(c.Request.Context(), data, source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

func (h *HelvaultHandler) readExport(c *gin.Context) ([]byte, string, error) {
	source := c.Query("source")

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		data, err := io.ReadAll(c.Request.Body)
		return data, source, err
	}

	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", err
		}
		// A multipart request without the field is an empty upload
		return nil, source, nil
	}
	if source == "" {
		source = file.Filename
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), source, nil
}
