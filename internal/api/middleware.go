package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/service"
	"commerce-api/internal/util"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// authRequired verifies the bearer token and stores the resolved actor
// in the request context
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			h.respondError(c, http.StatusUnauthorized, "Missing bearer token", nil)
			c.Abort()
			return
		}

		claims, err := h.authService.ParseToken(c.Request.Context(), raw)
		if err != nil {
			h.respondDomainError(c, err)
			c.Abort()
			return
		}

		actor, err := service.ActorFromClaims(claims)
		if err != nil {
			h.respondDomainError(c, err)
			c.Abort()
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// roleRequired rejects actors whose role is not in the allow list
func (h *Handler) roleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		h.respondError(c, http.StatusForbidden, "You are not authorized to perform this action", nil)
		c.Abort()
	}
}

// actorFrom retrieves the actor the auth middleware stored
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// pathID parses the :id path parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
