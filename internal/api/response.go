package api

import (
	"errors"
	"net/http"

	"commerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

// Meta carries pagination details in list responses
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// NewMeta builds pagination meta from a page request and total count
func NewMeta(page, perPage, total int) *Meta {
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	return &Meta{
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
}

type envelope struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data"`
	Meta       *Meta       `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) respond(c *gin.Context, status int, message string, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, envelope{Message: message, StatusCode: status, Data: data})
}

func (h *Handler) respondPage(c *gin.Context, message string, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, envelope{Message: message, StatusCode: http.StatusOK, Data: data, Meta: meta})
}

func (h *Handler) respondError(c *gin.Context, status int, message string, err error) {
	out := errorEnvelope{Message: message, StatusCode: status}
	if h.debug && err != nil {
		out.Error = err.Error()
	}
	c.JSON(status, out)
}

// respondDomainError maps a domain error onto the error envelope
func (h *Handler) respondDomainError(c *gin.Context, err error) {
	var (
		stockErr      *service.InsufficientStockError
		transitionErr *service.InvalidTransitionError
		cancelErr     *service.NotCancellableError
	)

	switch {
	case errors.As(err, &stockErr),
		errors.As(err, &transitionErr),
		errors.As(err, &cancelErr):
		h.respondError(c, http.StatusUnprocessableEntity, err.Error(), err)

	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrAlertNotFound),
		errors.Is(err, service.ErrUserNotFound):
		h.respondError(c, http.StatusNotFound, err.Error(), err)

	case errors.Is(err, service.ErrForbidden):
		h.respondError(c, http.StatusForbidden, "You are not authorized to perform this action", err)

	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenRevoked):
		h.respondError(c, http.StatusUnauthorized, err.Error(), err)

	case errors.Is(err, service.ErrVariantInactive),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrSKUAlreadyExists),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyOrder):
		h.respondError(c, http.StatusUnprocessableEntity, err.Error(), err)

	default:
		h.respondError(c, http.StatusInternalServerError, "Server Error", err)
	}
}

// pageParams extracts page / per_page query parameters
func pageParams(c *gin.Context) (page, perPage, offset int) {
	page = intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage = intQuery(c, "per_page", 15)
	if perPage < 1 || perPage > 100 {
		perPage = 15
	}
	return page, perPage, (page - 1) * perPage
}
