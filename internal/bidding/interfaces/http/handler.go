package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gavelworks/auctionhouse/internal/bidding/application"
	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/pkg/metrics"
)

// BidHandler 出价接口的 HTTP 处理器。
// 出价者身份由网关注入的 X-Username 头给出。
type BidHandler struct {
	app     *application.BiddingService
	scanner *application.Scanner
	metrics *metrics.Metrics
}

func NewBidHandler(app *application.BiddingService, scanner *application.Scanner, m *metrics.Metrics) *BidHandler {
	return &BidHandler{app: app, scanner: scanner, metrics: m}
}

// RegisterRoutes 注册路由
func (h *BidHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/bids")
	{
		api.POST("/:auctionId", h.PlaceBid)
		api.GET("/:auctionId", h.ListBids)
		api.GET("/:auctionId/highest", h.GetHighestBid)
	}
	// 供调度器和测试直接触发一次扫描
	router.POST("/api/settlement/scan", h.ScanAndSettle)
}

type placeBidRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (h *BidHandler) PlaceBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bidder := c.GetHeader("X-Username")
	if bidder == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	bid, err := h.app.PlaceBid(c.Request.Context(), c.Param("auctionId"), bidder, req.Amount)
	if err != nil {
		h.writeBidError(c, err)
		return
	}

	h.metrics.BidsPlacedTotal.Inc()
	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) ListBids(c *gin.Context) {
	bids, err := h.app.ListBids(c.Request.Context(), c.Param("auctionId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bids)
}

func (h *BidHandler) GetHighestBid(c *gin.Context) {
	bid, err := h.app.GetHighestBid(c.Request.Context(), c.Param("auctionId"))
	if err != nil {
		if errors.Is(err, domain.ErrNoBids) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) ScanAndSettle(c *gin.Context) {
	outcomes, err := h.scanner.ScanAndSettle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcomes)
}

func (h *BidHandler) writeBidError(c *gin.Context, err error) {
	var tooLow *domain.BidTooLowError
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		h.metrics.BidsRejectedTotal.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
	case errors.Is(err, domain.ErrSelfBid):
		h.metrics.BidsRejectedTotal.WithLabelValues("self_bid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAuctionEnded):
		h.metrics.BidsRejectedTotal.WithLabelValues("ended").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount):
		h.metrics.BidsRejectedTotal.WithLabelValues("invalid_amount").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &tooLow):
		h.metrics.BidsRejectedTotal.WithLabelValues("too_low").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": tooLow.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
