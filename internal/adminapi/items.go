package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"

	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
)

// BidStats summarises the bids on one item
type BidStats struct {
	Count  int     `json:"count"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

func registerItemRoutes(srv *webserver.Server) {
	srv.ApiGET("/items", listItems, requireUser)
	srv.ApiGET("/items/:id", getItem, requireUser)
	srv.ApiGET("/items/:id/bids", listItemBids, requireUser)
}

var itemSortColumns = map[string]string{
	"id":             "id",
	"name":           "name",
	"starting_price": "starting_price",
	"popularity":     "popularity",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

// listItems supports q, category, active, since, sort and order filters
func listItems(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortCol, ok := itemSortColumns[strings.TrimSpace(c.QueryParam("sort"))]
	if !ok {
		sortCol = "updated_at"
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	db := GetDB(c).Model(&domain.Item{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "name", "description")
	}
	if name := strings.TrimSpace(c.QueryParam("category")); name != "" {
		sub := GetDB(c).Model(&domain.Category{}).Select("id").Where("name = ?", name)
		db = db.Where("category_id IN (?)", sub)
	}
	switch strings.ToLower(c.QueryParam("active")) {
	case "true", "1":
		db = db.Where("active = ?", true)
	case "false", "0":
		db = db.Where("active = ?", false)
	}
	if since := strings.TrimSpace(c.QueryParam("since")); since != "" {
		t, err := dateparse.ParseLocal(since)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_SINCE", "Unable to parse since", err.Error())
		}
		db = db.Where("created_at >= ?", t)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query items", err.Error())
	}

	var items []domain.Item
	if err := db.Preload("Category").Preload("User").
		Order(sortCol + " " + order).Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query items", err.Error())
	}
	return paged(c, items, total, page, pageSize)
}

func getItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	svc := GetAppContext(c).Auction()
	item, err := svc.GetItem(id)
	if errors.Is(err, auction.ErrNotFound) {
		return fail(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query item", err.Error())
	}
	bids, err := svc.ListBids(id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query bids", err.Error())
	}
	cfg := GetAppContext(c).Config()
	return ok(c, map[string]interface{}{
		"item":      item,
		"image_url": item.ImageURL(cfg.Media.URLPrefix),
		"bid_stats": bidStats(bids),
	})
}

func bidStats(bids []domain.Bid) BidStats {
	s := BidStats{Count: len(bids)}
	if len(bids) == 0 {
		return s
	}
	data := make(stats.Float64Data, 0, len(bids))
	for _, b := range bids {
		data = append(data, b.Amount)
	}
	s.Max, _ = data.Max()
	mean, _ := data.Mean()
	median, _ := data.Median()
	s.Mean, _ = stats.Round(mean, 2)
	s.Median, _ = stats.Round(median, 2)
	return s
}

func listItemBids(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	svc := GetAppContext(c).Auction()
	if _, err := svc.GetItem(id); errors.Is(err, auction.ErrNotFound) {
		return fail(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query item", err.Error())
	}
	bids, err := svc.ListBids(id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query bids", err.Error())
	}
	return ok(c, bids)
}
