package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
)

func registerBidRoutes(srv *webserver.Server) {
	srv.ApiGET("/bids/export", exportBids, requireSuper)
}

// exportBids streams every bid, optionally of one item, as CSV
func exportBids(c echo.Context) error {
	db := GetDB(c).Model(&domain.Bid{})
	if raw := strings.TrimSpace(c.QueryParam("item_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
		}
		db = db.Where("item_id = ?", id)
	}

	var bids []*domain.Bid
	if err := db.Order("created_at ASC").Find(&bids).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query bids", err.Error())
	}
	data, err := gocsv.MarshalBytes(&bids)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to encode bids", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="bids.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
