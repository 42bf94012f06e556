// Package webui serves the HTML pages of the auction site.
package webui

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
	"go.uber.org/zap"
)

const emptyActive = "There are no active items in the auction!"

type handlers struct {
	appctx app.AppContext
}

// Init installs the template renderer and registers the page routes
func Init(srv *webserver.Server, appctx app.AppContext) error {
	r, err := NewRenderer()
	if err != nil {
		return errors.Wrap(err, "parse templates")
	}
	e := srv.Echo()
	e.Renderer = r
	h := &handlers{appctx: appctx}

	get := []string{http.MethodGet}
	route := func(methods []string, path string, fn echo.HandlerFunc, m ...echo.MiddlewareFunc) {
		e.Match(methods, path, fn, append([]echo.MiddlewareFunc{h.loadUser}, m...)...)
	}
	route(get, "/", h.index)
	route(getPost, "/populars", h.populars)
	route(getPost, "/login", h.loginPage, srv.LoginLimiter())
	route(get, "/logout", h.logoutPage, loginRequired)
	route(getPost, "/register", h.register, srv.LoginLimiter())
	route(getPost, "/create", h.create, loginRequired)
	route(getPost, "/edit/:id", h.edit)
	route(getPost, "/delete/:id", h.delete)
	route(get, "/item/:id", h.item)
	route([]string{http.MethodPost}, "/item/:id", h.toggleActive)
	route(getPost, "/watch/:id", h.watch)
	route(getPost, "/bid/:id", h.bid)
	route(getPost, "/comment/:id", h.comment)
	route(getPost, "/watchlist", h.watchlist, loginRequired)
	route(getPost, "/my_items", h.myItems, loginRequired)
	route(getPost, "/category", h.categories)
	route(getPost, "/category/:name", h.category)
	route(get, "/live/item/:id", h.live)
	return nil
}

var getPost = []string{http.MethodGet, http.MethodPost}

func (h *handlers) svc() *auction.Service {
	return h.appctx.Auction()
}

// render adds the per request values every page uses
func (h *handlers) render(c echo.Context, code int, name string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["User"] = currentUser(c)
	data["CSRF"] = c.Get(webserver.CSRFKey)
	data["Flashes"] = takeFlashes(c)
	data["MediaPrefix"] = h.appctx.Config().Media.URLPrefix
	return c.Render(code, name, data)
}

func (h *handlers) listing(c echo.Context, title, empty string, items []domain.Item) error {
	return h.render(c, http.StatusOK, "listing.html", map[string]interface{}{
		"Title": title,
		"Empty": empty,
		"Items": items,
	})
}

// itemFromParam loads the item named by the :id path parameter. Unknown or
// malformed ids are a 404.
func (h *handlers) itemFromParam(c echo.Context) (*domain.Item, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Item not found.")
	}
	item, err := h.svc().GetItem(id)
	if errors.Is(err, auction.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Item not found.")
	}
	return item, err
}

func itemURL(id int64) string {
	return "/item/" + strconv.FormatInt(id, 10)
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusFound, to)
}

// userError flashes messages meant for the user and passes anything else on
func userError(c echo.Context, err error) error {
	if auction.IsUserError(err) {
		addFlash(c, err.Error())
		return nil
	}
	return err
}

func (h *handlers) record(c echo.Context, action, desc string) {
	h.svc().RecordAction(currentUser(c), c.RealIP(), action, desc)
}

func (h *handlers) index(c echo.Context) error {
	items, err := h.svc().ListActive()
	if err != nil {
		return err
	}
	return h.listing(c, "Recent Items", emptyActive, items)
}

func (h *handlers) populars(c echo.Context) error {
	items, err := h.svc().ListPopular()
	if err != nil {
		return err
	}
	return h.listing(c, "Most popular", emptyActive, items)
}

func (h *handlers) watchlist(c echo.Context) error {
	items, err := h.svc().ListWatchlist(currentUser(c).ID)
	if err != nil {
		return err
	}
	return h.listing(c, "Watchlist", "There are no active items in your watchlist!", items)
}

func (h *handlers) myItems(c echo.Context) error {
	items, err := h.svc().ListByOwner(currentUser(c).ID)
	if err != nil {
		return err
	}
	return h.listing(c, "My items", "You have no items!", items)
}

func (h *handlers) categories(c echo.Context) error {
	cats, err := h.svc().ListCategories()
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "categories.html", map[string]interface{}{
		"Title":      "Categories",
		"Categories": cats,
	})
}

func (h *handlers) category(c echo.Context) error {
	cat, items, err := h.svc().ListByCategory(c.Param("name"))
	if errors.Is(err, auction.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found.")
	}
	if err != nil {
		return err
	}
	return h.listing(c, cat.Name, "There are no active items for this category!", items)
}

func (h *handlers) loginPage(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "login.html", nil)
	}
	username := c.FormValue("username")
	user, err := h.svc().Authenticate(username, c.FormValue("password"))
	if err != nil {
		if !auction.IsUserError(err) {
			return err
		}
		zap.L().Info("login failed", zap.String("username", username), zap.String("ip", c.RealIP()))
		return h.render(c, http.StatusOK, "login.html", map[string]interface{}{
			"Message":  auction.ErrInvalidCredentials.Error(),
			"Username": username,
		})
	}
	h.login(c, user)
	h.record(c, "login", "web login")
	return redirect(c, "/")
}

func (h *handlers) logoutPage(c echo.Context) error {
	h.logout(c)
	return redirect(c, "/")
}

func (h *handlers) register(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "register.html", nil)
	}
	username := c.FormValue("username")
	email := c.FormValue("email")
	user, err := h.svc().Register(username, email, c.FormValue("password"), c.FormValue("confirmation"))
	if err != nil {
		if !auction.IsUserError(err) {
			return err
		}
		return h.render(c, http.StatusOK, "register.html", map[string]interface{}{
			"Message":  err.Error(),
			"Username": username,
			"Email":    email,
		})
	}
	h.login(c, user)
	h.record(c, "register", "new account "+user.Username)
	return redirect(c, "/")
}
