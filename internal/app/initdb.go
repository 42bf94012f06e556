package app

import (
	"errors"
	"strings"
	"time"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	superUsername   = "admin"
	defaultPassword = "auctions"
)

var defaultCategories = []string{
	"Electronics", "Fashion", "Home", "Books", "Toys", "Sports", "Collectibles", domain.DefaultCategory,
}

// checkSuper makes sure the super user exists and can log in
func (a *Application) checkSuper() {
	hashedPassword, err := common.HashPassword(defaultPassword)
	if err != nil {
		zap.L().Error("failed to hash default password", zap.Error(err))
		return
	}

	var user domain.User
	err = a.gormDB.Where("username = ?", superUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.User{
			ID:        common.UUIDint64(),
			Username:  superUsername,
			Email:     "N/A",
			Password:  hashedPassword,
			Level:     domain.LevelSuper,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super user", zap.Error(err))
		} else {
			zap.L().Info("initialized default super user", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super user", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(user.Password) == ""
	resetLevel := user.Level != domain.LevelSuper
	resetStatus := user.Status != common.ENABLED
	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = domain.LevelSuper
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}
	if err := a.gormDB.Model(&domain.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super user", zap.Error(err))
		return
	}
	zap.L().Warn("repaired default super user",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

// checkCategories creates the default categories that are missing
func (a *Application) checkCategories() {
	for _, name := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", name).Count(&count)
		if count > 0 {
			continue
		}
		if err := a.gormDB.Create(&domain.Category{ID: common.UUIDint64(), Name: name}).Error; err != nil {
			zap.L().Error("failed to create default category", zap.String("name", name), zap.Error(err))
		} else {
			zap.L().Info("initialized default category", zap.String("name", name))
		}
	}
}
