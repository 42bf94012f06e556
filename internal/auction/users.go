package auction

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/pkg/common"
	"gorm.io/gorm"
)

// Register creates a regular user account
func (s *Service) Register(username, email, password, confirmation string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if password != confirmation {
		return nil, ErrPasswordMismatch
	}
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if !withinLength(username, MaxUsernameLength) {
		return nil, ErrUsernameTooLong
	}
	if !withinLength(email, MaxEmailLength) {
		return nil, ErrEmailTooLong
	}

	var exists int64
	if err := s.db.Model(&domain.User{}).Where("username = ?", username).Count(&exists).Error; err != nil {
		return nil, errors.Wrap(err, "query username")
	}
	if exists > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := common.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := &domain.User{
		ID:       common.UUIDint64(),
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: hash,
		Level:    domain.LevelUser,
		Status:   common.ENABLED,
	}
	if err := s.db.Create(user).Error; err != nil {
		// lost a race on the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Authenticate checks the credentials of an enabled user and records the login time
func (s *Service) Authenticate(username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	if user.Status == common.DISABLED || !common.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	user.LastLogin = s.now()
	if err := s.db.Model(&user).UpdateColumn("last_login", user.LastLogin).Error; err != nil {
		return nil, errors.Wrap(err, "update last login")
	}
	return &user, nil
}

func (s *Service) GetUser(id int64) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, dbError(err, "query user")
	}
	return &user, nil
}
