package api

import (
	"net/http"

	"commerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

// register handles account registration
func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	h.respond(c, http.StatusCreated, "Registered successfully", gin.H{
		"user":  user,
		"token": pair,
	})
}

// login handles credential verification and token issuance
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Logged in successfully", gin.H{
		"user":  user,
		"token": pair,
	})
}

// logout revokes the presented token
func (h *Handler) logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Logged out successfully", nil)
}

// refresh rotates the presented token
func (h *Handler) refresh(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		h.respondError(c, http.StatusUnauthorized, "Missing bearer token", nil)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Token refreshed", gin.H{"token": pair})
}

// me returns the authenticated account
func (h *Handler) me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "OK", gin.H{"user": user})
}
