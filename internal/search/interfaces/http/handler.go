package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gavelworks/auctionhouse/internal/search/application"
	"github.com/gavelworks/auctionhouse/internal/search/domain"
)

// SearchHandler 搜索查询的 HTTP 处理器
type SearchHandler struct {
	app *application.SearchService
}

func NewSearchHandler(app *application.SearchService) *SearchHandler {
	return &SearchHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *SearchHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/search", h.Search)
}

func (h *SearchHandler) Search(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("pageNumber", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pageNumber"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pageSize"})
		return
	}

	result, err := h.app.Search(c.Request.Context(), domain.SearchQuery{
		Term:     c.Query("searchTerm"),
		Seller:   c.Query("seller"),
		Winner:   c.Query("winner"),
		OrderBy:  c.Query("orderBy"),
		FilterBy: c.Query("filterBy"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
