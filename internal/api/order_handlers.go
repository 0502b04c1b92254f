package api

import (
	"net/http"

	"commerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

// listOrders handles order listing scoped by role
func (h *Handler) listOrders(c *gin.Context) {
	page, perPage, offset := pageParams(c)
	status := c.Query("status")

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actorFrom(c), status, perPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respondPage(c, "OK", orders, NewMeta(page, perPage, total))
}

// createOrder handles order placement
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	order, items, err := h.orderService.CreateOrder(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	h.respond(c, http.StatusCreated, "Order placed successfully", gin.H{
		"order": order,
		"items": items,
	})
}

// getOrder handles order retrieval
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid order ID", nil)
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "OK", gin.H{
		"order": order,
		"items": items,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus moves an order along the state machine
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid order ID", nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Order status updated", order)
}

// cancelOrder cancels an order and restores its stock
func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Order cancelled successfully", order)
}
