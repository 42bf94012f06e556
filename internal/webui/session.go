package webui

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
)

const (
	sessionName = "auctions"
	sessionUID  = "uid"
	webUserKey  = "webuser"
)

func getSession(c echo.Context) *sessions.Session {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		// a cookie signed with an old secret; start over
		zap.L().Debug("invalid session cookie", zap.Error(err))
	}
	return sess
}

func saveSession(c echo.Context, sess *sessions.Session) {
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Error("save session", zap.Error(err))
	}
}

func (h *handlers) login(c echo.Context, user *domain.User) {
	sess := getSession(c)
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 14,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessionUID] = user.ID
	saveSession(c, sess)
	c.Set(webUserKey, user)
}

func (h *handlers) logout(c echo.Context) {
	sess := getSession(c)
	delete(sess.Values, sessionUID)
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1}
	saveSession(c, sess)
}

// loadUser puts the logged in user, if any, into the context
func (h *handlers) loadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := getSession(c)
		if uid, ok := sess.Values[sessionUID].(int64); ok {
			user, err := h.svc().GetUser(uid)
			if err == nil && user.Status != common.DISABLED {
				c.Set(webUserKey, user)
			}
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *domain.User {
	u, _ := c.Get(webUserKey).(*domain.User)
	return u
}

// loginRequired sends anonymous visitors to the login page
func loginRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentUser(c) == nil {
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

func addFlash(c echo.Context, msg string) {
	sess := getSession(c)
	sess.AddFlash(msg)
	saveSession(c, sess)
}

func takeFlashes(c echo.Context) []string {
	sess := getSession(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	saveSession(c, sess)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
