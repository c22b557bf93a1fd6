package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bag-of-holding/backend/internal/database"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

// statusFor maps service and worker errors onto HTTP status codes
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrNoDataLoaded), errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInvalidExport), errors.Is(err, services.ErrInvalidEntry), errors.Is(err, worker.ErrUnknownRequest):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrWorkerTerminated), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
