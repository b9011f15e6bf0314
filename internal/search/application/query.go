package application

import (
	"context"

	"github.com/gavelworks/auctionhouse/internal/search/domain"
)

// SearchService 搜索查询服务
type SearchService struct {
	items domain.ItemRepository
}

func NewSearchService(items domain.ItemRepository) *SearchService {
	return &SearchService{items: items}
}

// SearchResult 分页查询结果
type SearchResult struct {
	Results    []*domain.Item `json:"results"`
	PageCount  int64          `json:"pageCount"`
	TotalCount int64          `json:"totalCount"`
}

// Search 执行查询并返回分页结果。
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*SearchResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 10
	}

	items, total, err := s.items.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	pageCount := total / int64(q.PageSize)
	if total%int64(q.PageSize) != 0 {
		pageCount++
	}
	return &SearchResult{Results: items, PageCount: pageCount, TotalCount: total}, nil
}
