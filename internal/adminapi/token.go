package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
	"github.com/talkincode/auctions/pkg/common"
)

const apiUserKey = "apiuser"

type tokenPayload struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// createToken exchanges credentials for a signed bearer token
func createToken(c echo.Context) error {
	var payload tokenPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	appCtx := GetAppContext(c)
	user, err := appCtx.Auction().Authenticate(payload.Username, payload.Password)
	if errors.Is(err, auction.ErrInvalidCredentials) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to authenticate", err.Error())
	}

	cfg := appCtx.Config()
	expires := time.Now().Add(time.Duration(cfg.Web.JwtExpire) * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"level":    user.Level,
		"exp":      expires.Unix(),
		"iat":      time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.Web.Secret))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to sign token", err.Error())
	}
	appCtx.Auction().RecordAction(user, c.RealIP(), "api_login", "issued api token")
	return ok(c, map[string]interface{}{
		"token":      signed,
		"expires_at": expires,
		"user":       user,
	})
}

// currentUser loads the enabled user named by the request token
func currentUser(c echo.Context) (*domain.User, error) {
	if u, ok := c.Get(apiUserKey).(*domain.User); ok {
		return u, nil
	}
	token, ok := c.Get(webserver.UserTokenKey).(*jwt.Token)
	if !ok {
		return nil, auction.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, auction.ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, auction.ErrInvalidCredentials
	}
	user, err := GetAppContext(c).Auction().GetUser(id)
	if err != nil {
		return nil, err
	}
	if user.Status == common.DISABLED {
		return nil, auction.ErrInvalidCredentials
	}
	c.Set(apiUserKey, user)
	return user, nil
}

// requireUser rejects tokens whose user no longer exists or is disabled
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c); err != nil {
			return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token user", nil)
		}
		return next(c)
	}
}

// requireSuper restricts an endpoint to super users
func requireSuper(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token user", nil)
		}
		if !user.IsSuper() {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "Super user required", nil)
		}
		return next(c)
	}
}

func getMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token user", nil)
	}
	return ok(c, user)
}
