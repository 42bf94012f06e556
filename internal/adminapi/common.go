package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/webserver"
)

// ListMeta describes the page returned by list endpoints
type ListMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": data,
		"meta": ListMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// parsePagination reads page and perPage (or pageSize), defaulting to 1 and 20
func parsePagination(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	pageSize, err := strconv.Atoi(raw)
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppCtxKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", err.Error())
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", details)
}

// likeFilter matches q against cols case-insensitively on both dialects
func likeFilter(db *gorm.DB, q string, cols ...string) *gorm.DB {
	pg := strings.EqualFold(db.Name(), "postgres") //nolint:staticcheck
	conds := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		if pg {
			conds[i] = col + " ILIKE ?"
			args[i] = "%" + q + "%"
		} else {
			conds[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = "%" + strings.ToLower(q) + "%"
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}
