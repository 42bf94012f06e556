package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
	"github.com/talkincode/auctions/pkg/common"
)

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=20"`
}

// registerCategoryRoutes registers category routes; changes need a super user
func registerCategoryRoutes(srv *webserver.Server) {
	srv.ApiGET("/categories", listCategories)
	srv.ApiGET("/categories/:id", getCategory)
	srv.ApiPOST("/categories", createCategory, requireSuper)
	srv.ApiPUT("/categories/:id", updateCategory, requireSuper)
	srv.ApiDELETE("/categories/:id", deleteCategory, requireSuper)
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "name")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var cats []domain.Category
	if err := db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&cats).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return paged(c, cats, total, page, pageSize)
}

func findCategory(c echo.Context) (*domain.Category, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return &cat, nil
}

func getCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}
	return ok(c, cat)
}

func nameTaken(c echo.Context, name string, exceptID int64) bool {
	var exists int64
	GetDB(c).Model(&domain.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&exists)
	return exists > 0
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if nameTaken(c, payload.Name, 0) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	}

	cat := domain.Category{ID: common.UUIDint64(), Name: payload.Name}
	if err := GetDB(c).Create(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	recordAction(c, "create_category", cat.Name)
	return ok(c, cat)
}

func updateCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if cat.Name == domain.DefaultCategory && payload.Name != cat.Name {
		return fail(c, http.StatusConflict, "CATEGORY_PROTECTED", "The default category cannot be renamed", nil)
	}
	if nameTaken(c, payload.Name, cat.ID) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	}

	cat.Name = payload.Name
	if err := GetDB(c).Save(cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}
	recordAction(c, "update_category", cat.Name)
	return ok(c, cat)
}

func deleteCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}

	// items keep their category
	var itemCount int64
	GetDB(c).Model(&domain.Item{}).Where("category_id = ?", cat.ID).Count(&itemCount)
	if itemCount > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE", "Category is in use by items and cannot be deleted", map[string]interface{}{"item_count": itemCount})
	}
	if cat.Name == domain.DefaultCategory {
		return fail(c, http.StatusConflict, "CATEGORY_PROTECTED", "The default category cannot be deleted", nil)
	}

	if err := GetDB(c).Where("id = ?", cat.ID).Delete(&domain.Category{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}
	recordAction(c, "delete_category", cat.Name)
	return ok(c, map[string]interface{}{"id": cat.ID})
}

func recordAction(c echo.Context, action, desc string) {
	user, _ := currentUser(c)
	GetAppContext(c).Auction().RecordAction(user, c.RealIP(), action, desc)
}
