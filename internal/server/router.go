package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facetworks/facet/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceNameContextKey = "facet_service_name"
	heartbeatInterval     = 15 * time.Second
)

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingViewStore      = errors.New("view store dependency required")
	errMissingExchangeSecret = errors.New("token exchange secret required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates the service tokens protecting the API.
type TokenManager interface {
	IssueServiceToken(ctx context.Context, serviceName string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP handler.
type Dependencies struct {
	TokenManager        TokenManager
	TokenExchangeSecret string
	ViewStore           *store.Service
	Realtime            *RealtimeDispatcher
	Logger              *zap.Logger
}

// NewHTTPHandler builds the gin handler serving the view query, append, and
// realtime surfaces.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.ViewStore == nil {
		return nil, errMissingViewStore
	}
	if strings.TrimSpace(deps.TokenExchangeSecret) == "" {
		return nil, errMissingExchangeSecret
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:         deps.TokenManager,
		exchangeSecret: deps.TokenExchangeSecret,
		viewStore:      deps.ViewStore,
		realtime:       realtime,
		logger:         logger,
	}

	router.POST("/auth/token", handler.handleTokenExchange)
	router.GET("/views/stream", handler.handleRealtimeStream)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/views/seed", handler.handleSeedViews)
	protected.POST("/views/changes", handler.handleAppendChanges)
	protected.GET("/entities/:entity_id/views", handler.handleListSeeds)
	protected.GET("/entities/:entity_id/views/:view_name/changes", handler.handleListChanges)

	return router, nil
}

type httpHandler struct {
	tokens         TokenManager
	exchangeSecret string
	viewStore      *store.Service
	realtime       *RealtimeDispatcher
	logger         *zap.Logger
}

type tokenRequestPayload struct {
	ServiceName  string `json:"service_name"`
	SharedSecret string `json:"shared_secret"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleTokenExchange(c *gin.Context) {
	var request tokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ServiceName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(request.SharedSecret), []byte(h.exchangeSecret)) != 1 {
		h.logger.Warn("token exchange rejected", zap.String("service_name", request.ServiceName))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueServiceToken(c.Request.Context(), request.ServiceName)
	if err != nil {
		h.logger.Error("failed to issue service token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

type seedRequestPayload struct {
	Seeds []seedPayload `json:"seeds"`
}

type seedPayload struct {
	EntityID string          `json:"entity_id"`
	ViewName string          `json:"view_name"`
	Value    json.RawMessage `json:"value"`
	Type     string          `json:"type"`
}

func (h *httpHandler) handleSeedViews(c *gin.Context) {
	var request seedRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Seeds) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	seeds := make([]store.SeedRecord, 0, len(request.Seeds))
	for _, seed := range request.Seeds {
		if seed.EntityID == "" || seed.ViewName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		seeds = append(seeds, store.SeedRecord{
			EntityID:  seed.EntityID,
			ViewName:  seed.ViewName,
			ValueJSON: string(seed.Value),
			ValueType: seed.Type,
		})
	}

	if err := h.viewStore.SeedViews(c.Request.Context(), seeds); err != nil {
		h.logger.Error("failed to seed views", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "seed_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"seeded": len(seeds)})
}

type appendRequestPayload struct {
	Changes []appendChangePayload `json:"changes"`
}

type appendChangePayload struct {
	EntityID string          `json:"entity_id"`
	ViewName string          `json:"view_name"`
	Op       string          `json:"op"`
	Payload  json.RawMessage `json:"payload"`
}

type appendResponsePayload struct {
	Results []appendResultPayload `json:"results"`
}

type appendResultPayload struct {
	ChangeID string `json:"change_id"`
	ViewName string `json:"view_name"`
	Seq      int64  `json:"seq"`
}

func (h *httpHandler) handleAppendChanges(c *gin.Context) {
	var request appendRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Changes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	records := make([]store.ChangeRecord, 0, len(request.Changes))
	for _, change := range request.Changes {
		if change.EntityID == "" || change.ViewName == "" || change.Op == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		records = append(records, store.ChangeRecord{
			EntityID:    change.EntityID,
			ViewName:    change.ViewName,
			Op:          change.Op,
			PayloadJSON: string(change.Payload),
		})
	}

	appended, err := h.viewStore.AppendChanges(c.Request.Context(), records)
	if err != nil {
		h.logger.Error("failed to append changes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "append_failed"})
		return
	}

	h.notifyAppended(records)

	response := appendResponsePayload{Results: make([]appendResultPayload, 0, len(appended))}
	for _, record := range appended {
		response.Results = append(response.Results, appendResultPayload{
			ChangeID: record.ChangeID,
			ViewName: record.ViewName,
			Seq:      record.Seq,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) notifyAppended(records []store.ChangeRecord) {
	viewsByEntity := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, record := range records {
		if seen[record.EntityID] == nil {
			seen[record.EntityID] = make(map[string]bool)
		}
		if seen[record.EntityID][record.ViewName] {
			continue
		}
		seen[record.EntityID][record.ViewName] = true
		viewsByEntity[record.EntityID] = append(viewsByEntity[record.EntityID], record.ViewName)
	}
	for entityID, viewNames := range viewsByEntity {
		h.realtime.NotifyChanges(entityID, viewNames)
	}
}

type seedListResponsePayload struct {
	Views []seedListEntryPayload `json:"views"`
}

type seedListEntryPayload struct {
	Name            string          `json:"name"`
	Value           json.RawMessage `json:"value"`
	Type            string          `json:"type"`
	SeededAtSeconds int64           `json:"seeded_at_s"`
}

func (h *httpHandler) handleListSeeds(c *gin.Context) {
	entityID := c.Param("entity_id")

	seeds, err := h.viewStore.ListSeeds(c.Request.Context(), entityID)
	if err != nil {
		h.logger.Error("failed to list view seeds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	response := seedListResponsePayload{Views: make([]seedListEntryPayload, 0, len(seeds))}
	for _, seed := range seeds {
		response.Views = append(response.Views, seedListEntryPayload{
			Name:            seed.ViewName,
			Value:           json.RawMessage(seed.ValueJSON),
			Type:            seed.ValueType,
			SeededAtSeconds: seed.SeededAtSeconds,
		})
	}
	c.JSON(http.StatusOK, response)
}

type changeListResponsePayload struct {
	Changes []changeListEntryPayload `json:"changes"`
}

type changeListEntryPayload struct {
	Seq              int64           `json:"seq"`
	ChangeID         string          `json:"change_id"`
	Op               string          `json:"op"`
	Payload          json.RawMessage `json:"payload"`
	AppliedAtSeconds int64           `json:"applied_at_s"`
}

func (h *httpHandler) handleListChanges(c *gin.Context) {
	entityID := c.Param("entity_id")
	viewName := c.Param("view_name")

	afterSeq := int64(0)
	if raw := c.Query("after_seq"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
			return
		}
		afterSeq = parsed
	}

	changes, err := h.viewStore.ListChanges(c.Request.Context(), entityID, viewName, afterSeq)
	if err != nil {
		h.logger.Error("failed to list view changes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	response := changeListResponsePayload{Changes: make([]changeListEntryPayload, 0, len(changes))}
	for _, change := range changes {
		response.Changes = append(response.Changes, changeListEntryPayload{
			Seq:              change.Seq,
			ChangeID:         change.ChangeID,
			Op:               change.Op,
			Payload:          json.RawMessage(change.PayloadJSON),
			AppliedAtSeconds: change.AppliedAtSeconds,
		})
	}
	c.JSON(http.StatusOK, response)
}

type realtimeEventPayload struct {
	ViewNames []string `json:"viewNames"`
	Source    string   `json:"source"`
}

func (h *httpHandler) handleRealtimeStream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		h.logger.Warn("stream token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entityID := strings.TrimSpace(c.Query("entity_id"))
	if entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	stream, cleanup := h.realtime.Subscribe(c.Request.Context(), entityID)
	defer cleanup()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", realtimeEventHeartbeat)
			c.Writer.Flush()
		case message, ok := <-stream:
			if !ok {
				return
			}
			payload, err := json.Marshal(realtimeEventPayload{
				ViewNames: message.ViewNames,
				Source:    realtimeSourceBackend,
			})
			if err != nil {
				h.logger.Error("failed to encode realtime payload", zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", message.EventType, payload)
			c.Writer.Flush()
		}
	}
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(serviceNameContextKey, subject)
	c.Next()
}
