package adminapi

import "github.com/talkincode/auctions/internal/webserver"

// Init registers the JSON API under /api/v1
func Init(srv *webserver.Server) {
	srv.ApiPOST("/token", createToken, srv.LoginLimiter())
	srv.ApiGET("/me", getMe)
	registerItemRoutes(srv)
	registerCategoryRoutes(srv)
	registerUserRoutes(srv)
	registerBidRoutes(srv)
	registerOprLogRoutes(srv)
	registerJobRoutes(srv)
	registerDbmsRoutes(srv)
}
