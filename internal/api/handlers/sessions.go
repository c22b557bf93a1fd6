package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

// SessionHandler serves queries against imported sessions. Reads that only
// need the immutable snapshot use the store directly; queries and matching
// go through the worker.
type SessionHandler struct {
	store  *services.SessionStore
	client *worker.Client
}

func NewSessionHandler(store *services.SessionStore, client *worker.Client) *SessionHandler {
	return &SessionHandler{
		store:  store,
		client: client,
	}
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.store.List()})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Summary())
}

func (h *SessionHandler) GetAggregates(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "aggregates": session.Aggregates})
}

func (h *SessionHandler) GetCollections(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "collections": services.CollectionStats(session)})
}

func (h *SessionHandler) QueryCards(c *gin.Context) {
	var filter services.CardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Colors = splitList(filter.Colors)
	filter.Types = splitList(filter.Types)

	result, err := h.client.QueryCards(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) QueryInventory(c *gin.Context) {
	collectionID := c.Query("collection_id")
	if _, err := services.DecodeBinderID(collectionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection_id: " + err.Error()})
		return
	}

	result, err := h.client.QueryInventory(c.Request.Context(), c.Param("id"), collectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) ComputeMatches(c *gin.Context) {
	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Decklist) == "" && len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decklist or entries is required"})
		return
	}

	if err := services.ValidateEntries(req.Entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.client.ComputeMatches(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// splitList accepts both repeated query values and comma separated lists
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
