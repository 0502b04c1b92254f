package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason"`
}

// adjustStockRequest carries the absolute target level. A pointer keeps
// gin's required check from rejecting an explicit zero.
type adjustStockRequest struct {
	NewQuantity *int   `json:"new_quantity" binding:"required,min=0"`
	Reason      string `json:"reason"`
}

// addStock records a manual restock for a variant
func (h *Handler) addStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid variant ID", nil)
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	entry, err := h.inventoryService.AddStock(c.Request.Context(), actorFrom(c), id, req.Quantity, req.Reason)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Stock added successfully", entry)
}

// adjustStock sets a variant's stock to an absolute value
func (h *Handler) adjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid variant ID", nil)
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	entry, err := h.inventoryService.AdjustStock(c.Request.Context(), actorFrom(c), id, *req.NewQuantity, req.Reason)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Stock adjusted successfully", entry)
}

// listInventoryLogs retrieves the ledger for a variant
func (h *Handler) listInventoryLogs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid variant ID", nil)
		return
	}
	page, perPage, offset := pageParams(c)

	logs, total, err := h.inventoryService.GetLogs(c.Request.Context(), actorFrom(c), id, perPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respondPage(c, "OK", logs, NewMeta(page, perPage, total))
}

// listAlerts retrieves unresolved low stock alerts
func (h *Handler) listAlerts(c *gin.Context) {
	page, perPage, offset := pageParams(c)

	alerts, total, err := h.inventoryService.ListAlerts(c.Request.Context(), actorFrom(c), perPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respondPage(c, "OK", alerts, NewMeta(page, perPage, total))
}

// resolveAlert marks an alert resolved on operator request
func (h *Handler) resolveAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid alert ID", nil)
		return
	}

	if err := h.inventoryService.ResolveAlert(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Alert resolved successfully", nil)
}

// stockSummary aggregates stock levels for the actor's scope
func (h *Handler) stockSummary(c *gin.Context) {
	summary, err := h.inventoryService.GetStockSummary(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "OK", summary)
}
