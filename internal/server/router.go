package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/prm-review/internal/auth"
	"github.com/MarcoPoloResearchLab/prm-review/internal/catalog"
	"github.com/MarcoPoloResearchLab/prm-review/internal/discussions"
	"github.com/MarcoPoloResearchLab/prm-review/internal/meetings"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	reviewerIDContextKey     = "prm_reviewer_id"
	defaultHeartbeatInterval = 25 * time.Second
	wildcardOrigin           = "*"
)

var (
	errMissingMeetingRegistry  = errors.New("meeting registry dependency required")
	errMissingDiscussionLinker = errors.New("discussion linker dependency required")
	errMissingReferenceCatalog = errors.New("reference catalog dependency required")
)

// MeetingRegistry is the meeting surface used by the HTTP handlers.
type MeetingRegistry interface {
	AddMeeting(ctx context.Context, input meetings.AddMeetingInput) (meetings.Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID string, input meetings.UpdateMeetingInput) (meetings.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (meetings.Meeting, error)
	GetAllMeetings(ctx context.Context, filter meetings.MeetingFilter) ([]meetings.Meeting, error)
}

// DiscussionLinker is the discussion point surface used by the HTTP handlers.
type DiscussionLinker interface {
	AddDiscussionPoint(ctx context.Context, input discussions.AddDiscussionPointInput) (discussions.DiscussionPoint, error)
	GetAllDiscussionPoints(ctx context.Context, filter discussions.Filter) ([]discussions.DiscussionPointView, error)
}

// ReferenceCatalog lists the project and set display records.
type ReferenceCatalog interface {
	ListProjects(ctx context.Context) ([]catalog.Project, error)
	ListSets(ctx context.Context, projectID string) ([]catalog.Set, error)
}

// SessionValidator authenticates incoming requests.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.ReviewerClaims, error)
}

// Dependencies wires the HTTP handler. Sessions is optional; when nil every route is public.
type Dependencies struct {
	Meetings          MeetingRegistry
	Discussions       DiscussionLinker
	Catalog           ReferenceCatalog
	Sessions          SessionValidator
	Events            *RealtimeDispatcher
	AllowedOrigins    []string
	Logger            *zap.Logger
	Clock             func() time.Time
	HeartbeatInterval time.Duration
}

// NewHTTPHandler builds the gin engine serving the review API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Meetings == nil {
		return nil, errMissingMeetingRegistry
	}
	if deps.Discussions == nil {
		return nil, errMissingDiscussionLinker
	}
	if deps.Catalog == nil {
		return nil, errMissingReferenceCatalog
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NewRealtimeDispatcher()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	handler := &httpHandler{
		meetings:          deps.Meetings,
		discussions:       deps.Discussions,
		catalog:           deps.Catalog,
		sessions:          deps.Sessions,
		events:            events,
		logger:            logger,
		clock:             clock,
		heartbeatInterval: heartbeat,
	}

	router := gin.New()
	router.Use(gin.CustomRecoveryWithWriter(io.Discard, handler.recoverPanic))
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(handler.logRequest)
	router.Use(handler.handleErrors)

	router.NoRoute(handler.handleNoRoute)
	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	if deps.Sessions != nil {
		protected.Use(handler.authorizeRequest)
	}
	protected.POST("/meetings", handler.handleAddMeeting)
	protected.PUT("/meetings/:id", handler.handleUpdateMeeting)
	protected.GET("/meetings", handler.handleListMeetings)
	protected.GET("/meetings/:id", handler.handleGetMeeting)
	protected.POST("/discussion-points", handler.handleAddDiscussionPoint)
	protected.GET("/discussion-points", handler.handleListDiscussionPoints)
	protected.GET("/projects", handler.handleListProjects)
	protected.GET("/sets", handler.handleListSets)
	protected.GET("/events", handler.handleEventStream)

	return router, nil
}

type httpHandler struct {
	meetings          MeetingRegistry
	discussions       DiscussionLinker
	catalog           ReferenceCatalog
	sessions          SessionValidator
	events            *RealtimeDispatcher
	logger            *zap.Logger
	clock             func() time.Time
	heartbeatInterval time.Duration
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Cache-Control"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := lo.Uniq(lo.Compact(allowedOrigins))
	if len(origins) == 0 || lo.Contains(origins, wildcardOrigin) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

func (h *httpHandler) logRequest(c *gin.Context) {
	started := time.Now()
	c.Next()
	h.logger.Info("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(started)))
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenMissing) {
			h.logger.Info("session validation failed", zap.Error(err))
		} else {
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		abortWithEnvelope(c, http.StatusUnauthorized, messageUnauthorized)
		return
	}
	c.Set(reviewerIDContextKey, claims.ReviewerID)
	c.Next()
}
