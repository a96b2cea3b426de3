package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/cohort"
	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/dto"
	"github.com/botmetrics/botmetrics/internal/service"
)

// maxWebhookBytes caps a single provider payload.
const maxWebhookBytes = 1 << 20

type Handler struct {
	users    service.UserServicer
	reports  service.ReportServicer
	webhooks service.WebhookServicer
	store    service.ConfigStore
	router   *gin.Engine
	log      *zap.Logger
}

func NewHandler(users service.UserServicer, reports service.ReportServicer, webhooks service.WebhookServicer, store service.ConfigStore, log *zap.Logger) *Handler {
	h := &Handler{
		users:    users,
		reports:  reports,
		webhooks: webhooks,
		store:    store,
		router:   gin.Default(),
		log:      log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	h.router.POST("/bots", h.createBot)
	h.router.GET("/bots/:id", h.getBot)
	h.router.POST("/bots/:id/instances", h.createInstance)

	h.router.POST("/bots/:id/dashboards", h.createDashboard)
	h.router.GET("/bots/:id/dashboards", h.listDashboards)
	h.router.GET("/bots/:id/dashboards/:uid", h.getDashboard)

	h.router.PATCH("/bots/:id/users/:uid", h.updateUser)
	h.router.POST("/bots/:id/users/search", h.searchUsers)
	h.router.GET("/bots/:id/reports/cohort", h.cohort)

	h.router.POST("/webhooks/:provider/:instance_id", h.receiveWebhook)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// receiveWebhook handles POST /webhooks/:provider/:instance_id. The
// raw body is forwarded to the ingestion queue untouched.
func (h *Handler) receiveWebhook(c *gin.Context) {
	instanceID, ok := h.pathInt64(c, "instance_id")
	if !ok {
		return
	}
	provider := c.Param("provider")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "read_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.webhooks.Enqueue(c.Request.Context(), provider, instanceID, payload); err != nil {
		h.log.Warn("Failed to enqueue webhook",
			zap.Error(err),
			zap.String("provider", provider),
			zap.Int64("bot_instance_id", instanceID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.StatusResponse{Status: "accepted"})
}

// updateUser handles PATCH /bots/:id/users/:uid
func (h *Handler) updateUser(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	user, err := h.users.UpdateAttributes(c.Request.Context(), botID, c.Param("uid"), req.User)
	if err != nil {
		h.log.Warn("Failed to update user attributes",
			zap.Error(err),
			zap.Int64("bot_id", botID),
			zap.String("uid", c.Param("uid")))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.UserAttributes.ToMap()})
}

// searchUsers handles POST /bots/:id/users/search
func (h *Handler) searchUsers(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	var req dto.SearchUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	rows, err := h.users.Search(c.Request.Context(), botID, &req)
	if err != nil {
		h.log.Error("Failed to search users",
			zap.Error(err),
			zap.Int64("bot_id", botID))
		h.writeError(c, err)
		return
	}

	users := make([]dto.UserResponse, 0, len(rows))
	for _, row := range rows {
		users = append(users, dto.NewUserResponse(row))
	}

	c.JSON(http.StatusOK, dto.SearchUsersResponse{
		Users: users,
		Count: len(users),
	})
}

// cohort handles GET /bots/:id/reports/cohort?start=<RFC3339|epoch>&group_by=week
func (h *Handler) cohort(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "start must be RFC3339 or epoch seconds",
		})
		return
	}

	report, err := h.reports.Cohort(c.Request.Context(), botID, start, c.Query("group_by"))
	if err != nil {
		if errors.Is(err, cohort.ErrUnsupportedGranularity) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}
		h.log.Error("Failed to compute cohort",
			zap.Error(err),
			zap.Int64("bot_id", botID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// createBot handles POST /bots
func (h *Handler) createBot(c *gin.Context) {
	var req dto.CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	bot := &domain.Bot{Name: req.Name, Provider: domain.Provider(req.Provider)}
	if err := h.store.CreateBot(c.Request.Context(), bot); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.BotResponse{
		ID:       bot.ID,
		Name:     bot.Name,
		Provider: string(bot.Provider),
	})
}

// getBot handles GET /bots/:id
func (h *Handler) getBot(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	bot, err := h.store.GetBot(c.Request.Context(), botID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BotResponse{
		ID:       bot.ID,
		Name:     bot.Name,
		Provider: string(bot.Provider),
	})
}

// createInstance handles POST /bots/:id/instances
func (h *Handler) createInstance(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	var req dto.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	bot, err := h.store.GetBot(c.Request.Context(), botID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	instance := &domain.BotInstance{
		BotID:    bot.ID,
		UID:      req.UID,
		Token:    req.Token,
		Provider: bot.Provider,
	}
	if err := h.store.CreateInstance(c.Request.Context(), instance); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.InstanceResponse{
		ID:        instance.ID,
		BotID:     instance.BotID,
		UID:       instance.UID,
		CreatedAt: instance.CreatedAt,
	})
}

// createDashboard handles POST /bots/:id/dashboards
func (h *Handler) createDashboard(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	var req dto.CreateDashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	dashboard := &domain.Dashboard{
		BotID:         botID,
		Name:          req.Name,
		DashboardType: req.DashboardType,
		Provider:      domain.Provider(req.Provider),
		EventType:     req.EventType,
		Regex:         req.Regex,
		Enabled:       enabled,
	}
	if err := h.store.CreateDashboard(c.Request.Context(), dashboard); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewDashboardResponse(dashboard))
}

// getDashboard handles GET /bots/:id/dashboards/:uid
func (h *Handler) getDashboard(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	dashboard, err := h.store.GetDashboard(c.Request.Context(), botID, c.Param("uid"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewDashboardResponse(dashboard))
}

// listDashboards handles GET /bots/:id/dashboards
func (h *Handler) listDashboards(c *gin.Context) {
	botID, ok := h.pathInt64(c, "id")
	if !ok {
		return
	}

	dashboards, err := h.store.ListDashboards(c.Request.Context(), botID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]dto.DashboardResponse, 0, len(dashboards))
	for _, dashboard := range dashboards {
		out = append(out, dto.NewDashboardResponse(dashboard))
	}

	c.JSON(http.StatusOK, gin.H{"dashboards": out})
}

// pathInt64 parses a numeric path parameter, writing the error response
// itself when the value is malformed.
func (h *Handler) pathInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: name + " must be an integer",
		})
		return 0, false
	}
	return v, true
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var vErr *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidTimezone):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// parseTimeParam accepts RFC3339 or epoch seconds; empty means eight
// weeks back, matching the default retention window.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().AddDate(0, 0, -8*7), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
