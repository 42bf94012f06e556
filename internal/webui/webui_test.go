package webui

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/app/apptest"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/livefeed"
	"github.com/talkincode/auctions/internal/webserver"
)

type webEnv struct {
	t   *testing.T
	app *app.Application
	ts  *httptest.Server
}

func newWebEnv(t *testing.T) *webEnv {
	a := apptest.New(t)
	srv := webserver.NewServer(a.Config(), a)
	require.NoError(t, Init(srv, a))
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return &webEnv{t: t, app: a, ts: ts}
}

// browser keeps cookies between requests and does not follow redirects
type browser struct {
	env    *webEnv
	client *http.Client
}

func (e *webEnv) browser() *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	return &browser{env: e, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type page struct {
	code     int
	location string
	body     string
}

func (b *browser) send(req *http.Request) page {
	t := b.env.t
	t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return page{code: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	req, err := http.NewRequest(http.MethodGet, b.env.ts.URL+path, nil)
	require.NoError(b.env.t, err)
	return b.send(req)
}

func (b *browser) post(path string, form url.Values) page {
	req, err := http.NewRequest(http.MethodPost, b.env.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.env.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

// postItem submits the item form as multipart, with an image when filename is set
func (b *browser) postItem(path string, fields map[string]string, filename string, image []byte) page {
	t := b.env.t
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req, err := http.NewRequest(http.MethodPost, b.env.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.send(req)
}

func (b *browser) login(username, password string) {
	p := b.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.env.t, http.StatusFound, p.code, p.body)
	require.Equal(b.env.t, "/", p.location)
}

func (e *webEnv) user(name string) (*domain.User, *browser) {
	u, err := e.app.Auction().Register(name, name+"@example.com", apptest.DefaultPassword, apptest.DefaultPassword)
	require.NoError(e.t, err)
	b := e.browser()
	b.login(name, apptest.DefaultPassword)
	return u, b
}

func (e *webEnv) item(owner *domain.User, name, price string) *domain.Item {
	item, err := e.app.Auction().CreateItem(owner, auction.ItemForm{Name: name, Price: price, Category: "Electronics"})
	require.NoError(e.t, err)
	return item
}

func itemPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func TestAnonymousPages(t *testing.T) {
	env := newWebEnv(t)
	b := env.browser()

	p := b.get("/")
	require.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Recent Items")
	assert.Contains(t, p.body, "There are no active items in the auction!")
	assert.Contains(t, p.body, "Not signed in.")

	p = b.get("/populars")
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Most popular")

	p = b.get("/category")
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, `href="/category/Electronics"`)

	p = b.get("/category/Electronics")
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "There are no active items for this category!")

	assert.Equal(t, http.StatusNotFound, b.get("/category/Boats").code)
	assert.Equal(t, http.StatusNotFound, b.get("/item/12345").code)
	assert.Equal(t, http.StatusNotFound, b.get("/item/abc").code)
	assert.Equal(t, http.StatusNotFound, b.get("/edit/12345").code)
	assert.Equal(t, http.StatusNotFound, b.post("/bid/12345", url.Values{"bid": {"1"}}).code)

	for _, path := range []string{"/create", "/watchlist", "/my_items", "/logout"} {
		p = b.get(path)
		assert.Equal(t, http.StatusFound, p.code, path)
		assert.Equal(t, "/login", p.location, path)
	}
	p = b.post("/my_items", nil)
	assert.Equal(t, "/login", p.location)
	p = b.postItem("/create", map[string]string{"name": "Lamp", "price": "5"}, "", nil)
	assert.Equal(t, "/login", p.location)
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newWebEnv(t)
	b := env.browser()

	p := b.get("/register")
	assert.Equal(t, http.StatusOK, p.code)

	p = b.post("/register", url.Values{
		"username": {"alice"}, "email": {"alice@example.com"},
		"password": {"one"}, "confirmation": {"two"},
	})
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Passwords must match.")
	assert.Contains(t, p.body, `value="alice"`)

	p = b.post("/register", url.Values{
		"username": {"alice"}, "email": {"alice@example.com"},
		"password": {"pw"}, "confirmation": {"pw"},
	})
	require.Equal(t, http.StatusFound, p.code)
	assert.Equal(t, "/", p.location)
	assert.Contains(t, b.get("/").body, "Signed in as <strong>alice</strong>")

	p = b.get("/logout")
	assert.Equal(t, "/", p.location)
	assert.Contains(t, b.get("/").body, "Not signed in.")

	other := env.browser()
	p = other.post("/register", url.Values{
		"username": {"alice"}, "email": {"x@example.com"},
		"password": {"pw"}, "confirmation": {"pw"},
	})
	assert.Contains(t, p.body, "Username already taken.")

	p = b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Invalid username and/or password.")

	b.login("alice", "pw")
	assert.Equal(t, http.StatusOK, b.get("/watchlist").code)
}

func TestCreateEditDelete(t *testing.T) {
	env := newWebEnv(t)
	owner, ob := env.user("owner")
	_, sb := env.user("stranger")

	p := ob.get("/create")
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Create Listing")

	p = ob.postItem("/create", map[string]string{"name": "x", "price": "5"}, "", nil)
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Name length must be larger than 1!")

	p = ob.postItem("/create", map[string]string{"name": "Lamp", "price": "-1"}, "", nil)
	assert.Contains(t, p.body, "Price must be a positive number!")

	p = ob.postItem("/create", map[string]string{"name": "Lamp", "price": "5"}, "notes.txt", []byte("text"))
	assert.Contains(t, p.body, "Not a valid image format!")

	p = ob.postItem("/create", map[string]string{
		"name": "Lamp", "description": "A desk lamp", "price": "5", "category": "Home",
	}, "lamp.png", []byte("\x89PNG fake"))
	require.Equal(t, http.StatusFound, p.code, p.body)
	require.True(t, strings.HasPrefix(p.location, "/item/"))

	items, err := env.app.Auction().ListByOwner(owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	lamp := items[0]
	assert.Equal(t, itemPath("/item/", lamp.ID), p.location)
	assert.True(t, lamp.Active)
	assert.Equal(t, 5.0, lamp.StartingPrice)
	assert.True(t, env.app.Media().Exists(lamp.Image))

	p = ob.get(itemPath("/item/", lamp.ID))
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Listing: Lamp")
	assert.Contains(t, p.body, "$5.00")
	assert.Contains(t, ob.get("/my_items").body, "Lamp")
	p = ob.post("/my_items", nil)
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "My items")

	p = ob.get(itemPath("/edit/", lamp.ID))
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Edit your item.")
	assert.Contains(t, p.body, `value="Lamp"`)

	p = sb.get(itemPath("/edit/", lamp.ID))
	assert.Equal(t, itemPath("/item/", lamp.ID), p.location)

	p = ob.postItem(itemPath("/edit/", lamp.ID), map[string]string{"name": "", "price": "5"}, "", nil)
	assert.Equal(t, http.StatusOK, p.code)
	assert.Contains(t, p.body, "Name length must be larger than 1!")

	p = ob.postItem(itemPath("/edit/", lamp.ID), map[string]string{"name": "Floor lamp", "price": "7.5", "category": "Home"}, "", nil)
	assert.Equal(t, itemPath("/item/", lamp.ID), p.location)
	updated, err := env.app.Auction().GetItem(lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Floor lamp", updated.Name)
	assert.Equal(t, 7.5, updated.StartingPrice)

	p = ob.get(itemPath("/delete/", lamp.ID))
	assert.Equal(t, itemPath("/item/", lamp.ID), p.location)
	p = sb.post(itemPath("/delete/", lamp.ID), nil)
	assert.Equal(t, itemPath("/item/", lamp.ID), p.location)
	p = ob.post(itemPath("/delete/", lamp.ID), nil)
	assert.Equal(t, "/", p.location)

	assert.Equal(t, http.StatusNotFound, ob.get(itemPath("/item/", lamp.ID)).code)
	assert.False(t, env.app.Media().Exists(lamp.Image))
}

func TestBidWatchComment(t *testing.T) {
	env := newWebEnv(t)
	owner, ob := env.user("owner")
	bidder, bb := env.user("bidder")
	phone := env.item(owner, "Phone", "100")
	itemURL := itemPath("/item/", phone.ID)

	p := bb.get(itemPath("/bid/", phone.ID))
	assert.Equal(t, itemURL, p.location)

	p = bb.post(itemPath("/bid/", phone.ID), url.Values{"bid": {"50"}})
	assert.Equal(t, itemURL, p.location)
	assert.Contains(t, bb.get(itemURL).body, "Your bid must be higher than the current price!")
	// flashes are shown once
	assert.NotContains(t, bb.get(itemURL).body, "Your bid must be higher")

	bb.post(itemPath("/bid/", phone.ID), url.Values{"bid": {"abc"}})
	assert.Contains(t, bb.get(itemURL).body, "Your bid must be a number!")

	p = bb.post(itemPath("/bid/", phone.ID), url.Values{"bid": {"120"}})
	assert.Equal(t, itemURL, p.location)
	assert.Contains(t, bb.get(itemURL).body, "$120.00")

	ob.post(itemPath("/bid/", phone.ID), url.Values{"bid": {"500"}})
	assert.Contains(t, ob.get(itemURL).body, "You cannot bid on or watch your own item.")

	bb.post(itemPath("/watch/", phone.ID), nil)
	assert.Contains(t, bb.get("/watchlist").body, "Phone")
	assert.Contains(t, bb.get(itemURL).body, "Remove from watchlist")
	bb.post(itemPath("/watch/", phone.ID), nil)
	assert.Contains(t, bb.get("/watchlist").body, "There are no active items in your watchlist!")

	bb.post(itemPath("/comment/", phone.ID), url.Values{"comment": {"Does it still work?"}})
	assert.Contains(t, ob.get(itemURL).body, "Does it still work?")
	bb.post(itemPath("/comment/", phone.ID), url.Values{"comment": {"   "}})
	assert.Contains(t, bb.get(itemURL).body, "Comment cannot be empty.")

	// only the owner can close the auction
	bb.post(itemURL, nil)
	open, err := env.app.Auction().GetItem(phone.ID)
	require.NoError(t, err)
	assert.True(t, open.Active)

	p = ob.post(itemURL, nil)
	assert.Equal(t, itemURL, p.location)
	closed, err := env.app.Auction().GetItem(phone.ID)
	require.NoError(t, err)
	assert.False(t, closed.Active)

	assert.Contains(t, bb.get(itemURL).body, "You won this auction!")
	assert.Contains(t, ob.get(itemURL).body, "Won by "+bidder.Username)
	assert.NotContains(t, bb.get("/").body, "Phone")

	bb.post(itemPath("/bid/", phone.ID), url.Values{"bid": {"999"}})
	assert.Contains(t, bb.get(itemURL).body, "This auction is closed.")
}

func TestLiveFeed(t *testing.T) {
	env := newWebEnv(t)
	owner, _ := env.user("owner")
	bidder, _ := env.user("bidder")
	phone := env.item(owner, "Phone", "100")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + itemPath("/live/item/", phone.ID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello livefeed.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)

	_, err = env.app.Auction().PlaceBid(bidder, phone.ID, 150)
	require.NoError(t, err)

	var msg livefeed.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "bid", msg.Type)
	assert.Equal(t, phone.ID, msg.ItemID)
	assert.Equal(t, 150.0, msg.Amount)
	assert.Equal(t, "bidder", msg.Username)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.ts.URL, "http")+"/live/item/999", nil)
	assert.Error(t, err)
}
