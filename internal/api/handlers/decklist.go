package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
)

type DecklistHandler struct{}

func NewDecklistHandler() *DecklistHandler {
	return &DecklistHandler{}
}

func (h *DecklistHandler) Parse(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := services.ParseDeckList(req.Text)
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *DecklistHandler) Format(c *gin.Context) {
	var req struct {
		Entries []models.DeckListEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": services.FormatDeckList(req.Entries)})
}
