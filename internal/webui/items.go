package webui

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"go.uber.org/zap"
)

func readItemForm(c echo.Context) auction.ItemForm {
	form := auction.ItemForm{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
		Category:    c.FormValue("category"),
	}
	if fh, err := c.FormFile("image"); err == nil {
		form.Image = fh
	} else if !errors.Is(err, http.ErrMissingFile) {
		zap.L().Debug("read image field", zap.Error(err))
	}
	return form
}

// itemFormPage renders the create or edit form, keeping what the user typed
func (h *handlers) itemFormPage(c echo.Context, action, message string, form auction.ItemForm) error {
	cats, err := h.svc().ListCategories()
	if err != nil {
		return err
	}
	title := "Create Listing"
	if action != "/create" {
		title = "Edit Listing"
	}
	return h.render(c, http.StatusOK, "create.html", map[string]interface{}{
		"Title":      title,
		"Action":     action,
		"Message":    message,
		"Form":       form,
		"Categories": cats,
	})
}

func formOf(item *domain.Item) auction.ItemForm {
	form := auction.ItemForm{
		Name:        item.Name,
		Description: item.Description,
		Price:       strconv.FormatFloat(item.StartingPrice, 'f', 2, 64),
	}
	if item.Category != nil {
		form.Category = item.Category.Name
	}
	return form
}

func (h *handlers) create(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.itemFormPage(c, "/create", "", auction.ItemForm{})
	}
	form := readItemForm(c)
	item, err := h.svc().CreateItem(currentUser(c), form)
	if auction.IsUserError(err) {
		return h.itemFormPage(c, "/create", err.Error(), form)
	}
	if err != nil {
		return err
	}
	h.record(c, "create_item", "created item "+item.Name)
	return redirect(c, itemURL(item.ID))
}

func (h *handlers) edit(c echo.Context) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	user := currentUser(c)
	if user == nil {
		return redirect(c, "/login")
	}
	if item.UserID != user.ID {
		return redirect(c, itemURL(item.ID))
	}
	action := "/edit/" + strconv.FormatInt(item.ID, 10)
	if c.Request().Method == http.MethodGet {
		return h.itemFormPage(c, action, "Edit your item.", formOf(item))
	}
	form := readItemForm(c)
	if _, err = h.svc().UpdateItem(user, item.ID, form); err != nil {
		if auction.IsUserError(err) {
			return h.itemFormPage(c, action, err.Error(), form)
		}
		return err
	}
	h.record(c, "update_item", "updated item "+form.Name)
	return redirect(c, itemURL(item.ID))
}

func (h *handlers) delete(c echo.Context) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	if c.Request().Method == http.MethodGet {
		return redirect(c, itemURL(item.ID))
	}
	user := currentUser(c)
	if user == nil {
		return redirect(c, "/login")
	}
	if item.UserID != user.ID {
		return redirect(c, itemURL(item.ID))
	}
	if err := h.svc().DeleteItem(user, item.ID); err != nil {
		return err
	}
	h.record(c, "delete_item", "deleted item "+item.Name)
	return redirect(c, "/")
}

func (h *handlers) item(c echo.Context) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	detail, err := h.svc().ItemDetail(item.ID, currentUser(c))
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "item.html", map[string]interface{}{
		"Title":  item.Name,
		"Detail": detail,
	})
}

// toggleActive opens or closes bidding; only the owner may do it
func (h *handlers) toggleActive(c echo.Context) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	user := currentUser(c)
	if user == nil {
		return redirect(c, "/login")
	}
	if item.UserID == user.ID {
		updated, err := h.svc().ToggleActive(user, item.ID)
		if err != nil {
			return err
		}
		if updated.Active {
			h.record(c, "open_item", "reopened item "+item.Name)
		} else {
			h.record(c, "close_item", "closed item "+item.Name)
		}
	}
	return redirect(c, itemURL(item.ID))
}

// itemAction runs fn for POST requests from a logged in user. Every outcome
// ends on the item page.
func (h *handlers) itemAction(c echo.Context, fn func(user *domain.User, item *domain.Item) error) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	if c.Request().Method == http.MethodGet {
		return redirect(c, itemURL(item.ID))
	}
	user := currentUser(c)
	if user == nil {
		return redirect(c, "/login")
	}
	if err := userError(c, fn(user, item)); err != nil {
		return err
	}
	return redirect(c, itemURL(item.ID))
}

func (h *handlers) watch(c echo.Context) error {
	return h.itemAction(c, func(user *domain.User, item *domain.Item) error {
		_, err := h.svc().ToggleWatch(user, item.ID)
		return err
	})
}

func (h *handlers) bid(c echo.Context) error {
	return h.itemAction(c, func(user *domain.User, item *domain.Item) error {
		amount, err := auction.ParseBid(c.FormValue("bid"))
		if err != nil {
			return err
		}
		bid, err := h.svc().PlaceBid(user, item.ID, amount)
		if err != nil {
			return err
		}
		h.record(c, "place_bid", "bid "+strconv.FormatFloat(bid.Amount, 'f', 2, 64)+" on "+item.Name)
		return nil
	})
}

func (h *handlers) comment(c echo.Context) error {
	return h.itemAction(c, func(user *domain.User, item *domain.Item) error {
		_, err := h.svc().AddComment(user, item.ID, c.FormValue("comment"))
		return err
	})
}

func (h *handlers) live(c echo.Context) error {
	item, err := h.itemFromParam(c)
	if err != nil {
		return err
	}
	if err := h.appctx.LiveFeed().ServeWS(c.Response(), c.Request(), item.ID); err != nil {
		zap.L().Debug("live feed closed", zap.Int64("item", item.ID), zap.Error(err))
	}
	return nil
}
