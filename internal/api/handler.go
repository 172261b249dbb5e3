// Package api serves the read-only catalog and availability endpoints.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"barberbot/internal/model"
	"barberbot/internal/slots"
)

// Store is the read side the handler needs.
type Store interface {
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
	ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error)
}

type Handler struct {
	store  Store
	calc   *slots.Calculator
	logger zerolog.Logger
}

func NewHandler(store Store, calc *slots.Calculator, logger *zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		calc:   calc,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Availability is the body of GET /availability.
type Availability struct {
	Date      string   `json:"date"`
	ServiceID string   `json:"service_id"`
	Slots     []string `json:"slots"`
}

func (h *Handler) Register(router *gin.RouterGroup) {
	router.GET("/services", h.listServices)
	router.GET("/availability", h.availability)
}

// NewRouter builds the engine with the handler mounted under /api/v1.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r.Group("/api/v1"))
	return r
}

func (h *Handler) listServices(c *gin.Context) {
	services, err := h.store.ListActiveServices(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list services")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, services)
}

func (h *Handler) availability(c *gin.Context) {
	date := c.Query("date")
	serviceID := c.Query("service_id")
	if date == "" || serviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date and service_id are required"})
		return
	}
	if !h.calc.IsBusinessDay(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a business day"})
		return
	}

	ctx := c.Request.Context()
	service, err := h.store.GetService(ctx, serviceID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !service.Active) {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("service_id", serviceID).Msg("get service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	existing, err := h.store.ListAppointmentsByDate(ctx, date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("list appointments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	free := h.calc.AvailableSlots(date, service.Duration, existing)
	if free == nil {
		free = []string{}
	}
	c.JSON(http.StatusOK, Availability{Date: date, ServiceID: serviceID, Slots: free})
}
