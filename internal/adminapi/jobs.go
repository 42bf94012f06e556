package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/webserver"
)

func registerJobRoutes(srv *webserver.Server) {
	srv.ApiGET("/jobs", listJobs, requireSuper)
	srv.ApiPOST("/jobs/:name/run", runJob, requireSuper)
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// runJob triggers a background job immediately and waits for it to finish
func runJob(c echo.Context) error {
	name := c.Param("name")
	err := GetAppContext(c).RunJobNow(name)
	switch {
	case errors.Is(err, app.ErrUnknownJob):
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", name)
	case errors.Is(err, app.ErrJobRunning):
		return fail(c, http.StatusConflict, "JOB_RUNNING", "Job is already running", name)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	recordAction(c, "run_job", "ran job "+name)
	return c.NoContent(http.StatusNoContent)
}
