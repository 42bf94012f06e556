package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
)

func registerUserRoutes(srv *webserver.Server) {
	srv.ApiGET("/users", listUsers, requireSuper)
	srv.ApiGET("/users/:id", getUser, requireSuper)
	srv.ApiPUT("/users/:id", updateUser, requireSuper)
}

type userUpdatePayload struct {
	Email  *string `json:"email" validate:"omitempty,email,max=254"`
	Level  *string `json:"level" validate:"omitempty,oneof=super user"`
	Status *string `json:"status" validate:"omitempty,oneof=enabled disabled"`
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	base := GetDB(c).Model(&domain.User{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		base = likeFilter(base, q, "username", "email")
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	var users []domain.User
	if err := base.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	return paged(c, users, total, page, pageSize)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	var u domain.User
	if err := GetDB(c).Where("id = ?", id).First(&u).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	var itemCount, bidCount int64
	GetDB(c).Model(&domain.Item{}).Where("user_id = ?", id).Count(&itemCount)
	GetDB(c).Model(&domain.Bid{}).Where("user_id = ?", id).Count(&bidCount)
	return ok(c, map[string]interface{}{
		"user":       u,
		"item_count": itemCount,
		"bid_count":  bidCount,
	})
}

func updateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	var payload userUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var u domain.User
	if err := GetDB(c).Where("id = ?", id).First(&u).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	me, _ := currentUser(c)
	if me != nil && me.ID == u.ID && (payload.Level != nil || payload.Status != nil) {
		return fail(c, http.StatusConflict, "SELF_UPDATE", "You cannot change your own level or status", nil)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if payload.Email != nil {
		u.Email = strings.TrimSpace(*payload.Email)
		updates["email"] = u.Email
	}
	if payload.Level != nil {
		u.Level = *payload.Level
		updates["level"] = u.Level
	}
	if payload.Status != nil {
		u.Status = *payload.Status
		updates["status"] = u.Status
	}
	if err := GetDB(c).Model(&domain.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", err.Error())
	}
	recordAction(c, "update_user", u.Username)
	return ok(c, u)
}
