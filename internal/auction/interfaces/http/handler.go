package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gavelworks/auctionhouse/internal/auction/application"
	"github.com/gavelworks/auctionhouse/internal/auction/domain"
)

// AuctionHandler 拍卖 CRUD 的 HTTP 处理器。
// 调用方身份由网关注入的 X-Username 头给出，鉴权在网关层完成。
type AuctionHandler struct {
	app *application.AuctionService
}

func NewAuctionHandler(app *application.AuctionService) *AuctionHandler {
	return &AuctionHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *AuctionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/auctions")
	{
		api.POST("", h.CreateAuction)
		api.GET("", h.ListAuctions)
		api.GET("/:id", h.GetAuction)
		api.PUT("/:id", h.UpdateAuction)
		api.DELETE("/:id", h.DeleteAuction)
	}
}

type createAuctionRequest struct {
	Make         string    `json:"make" binding:"required"`
	Model        string    `json:"model" binding:"required"`
	Color        string    `json:"color"`
	Mileage      int       `json:"mileage"`
	Year         int       `json:"year"`
	ReservePrice int64     `json:"reservePrice"`
	AuctionEnd   time.Time `json:"auctionEnd" binding:"required"`
}

func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	seller := c.GetHeader("X-Username")
	if seller == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	auction, err := h.app.CreateAuction(c.Request.Context(), application.CreateAuctionCommand{
		Make:         req.Make,
		Model:        req.Model,
		Color:        req.Color,
		Mileage:      req.Mileage,
		Year:         req.Year,
		ReservePrice: req.ReservePrice,
		Seller:       seller,
		AuctionEnd:   req.AuctionEnd,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, auction)
}

type updateAuctionRequest struct {
	Make    string `json:"make"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	Mileage int    `json:"mileage"`
	Year    int    `json:"year"`
}

func (h *AuctionHandler) UpdateAuction(c *gin.Context) {
	var req updateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auction, err := h.app.UpdateAuction(c.Request.Context(), c.Param("id"), c.GetHeader("X-Username"),
		application.UpdateAuctionCommand{
			Make:    req.Make,
			Model:   req.Model,
			Color:   req.Color,
			Mileage: req.Mileage,
			Year:    req.Year,
		})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) DeleteAuction(c *gin.Context) {
	if err := h.app.DeleteAuction(c.Request.Context(), c.Param("id"), c.GetHeader("X-Username")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auction, err := h.app.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	auctions, err := h.app.ListAuctions(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, auctions)
}

func (h *AuctionHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
	case errors.Is(err, domain.ErrNotSeller):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
