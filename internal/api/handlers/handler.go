package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/chargebook/internal/auth"
	"github.com/langchou/chargebook/internal/service"
	"github.com/langchou/chargebook/pkg/ws"
)

// Handler serves the booking gateway.
type Handler struct {
	logger   *zap.Logger
	sites    *service.SiteService
	bookings *service.BookingService
	verifier auth.Verifier
	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

func NewHandler(
	logger *zap.Logger,
	sites *service.SiteService,
	bookings *service.BookingService,
	verifier auth.Verifier,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:   logger,
		sites:    sites,
		bookings: bookings,
		verifier: verifier,
		wsHub:    wsHub,
		upgrader: websocket.Upgrader{
			// admin routes are already behind the bearer check
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// NewRouter builds the engine with the standard middleware chain and all routes.
func NewRouter(h *Handler, corsOrigin string, requestTimeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(h.logger))
	r.Use(CORS(corsOrigin))
	r.Use(Timeout(requestTimeout))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the public and admin routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	// sites
	r.GET("/sites", h.ListSites)
	r.GET("/sites/:siteId", h.GetSite)
	r.GET("/sites/:siteId/evses", h.ListSiteEVSEs)
	r.GET("/sites/:siteId/availability", h.SiteAvailability)

	// bookings
	r.GET("/bookings", h.ListBookings)
	r.POST("/bookings", h.CreateBooking)
	r.GET("/bookings/:id", h.GetBooking)
	r.GET("/booking-requests/:id", h.GetBookingRequest)

	// driver self-service, ownership by email
	r.GET("/my-bookings", h.ListMyBookings)
	r.POST("/my-bookings/:id/update", h.UpdateMyBooking)
	r.POST("/my-bookings/:id/cancel", h.CancelMyBooking)

	admin := r.Group("/admin", AdminGuard(h.verifier))
	{
		admin.GET("/bookings", h.AdminListBookings)
		admin.POST("/bookings/create", h.AdminCreateBooking)
		admin.POST("/bookings/:id/update", h.AdminUpdateBooking)
		admin.POST("/bookings/:id/cancel", h.AdminCancelBooking)
		admin.GET("/locations", h.AdminListLocations)
		admin.GET("/locations/:locationId/evses", h.AdminListLocationEVSEs)
		admin.GET("/ws", h.HandleWebSocket)
	}
}

// HandleWebSocket upgrades an admin console to the live booking request feed.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
