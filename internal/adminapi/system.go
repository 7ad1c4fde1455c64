package adminapi

import (
	"net/http"

	"github.com/alocode/restopos/internal/app"
	"github.com/alocode/restopos/internal/reporting"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/alocode/restopos/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func registerSystemRoutes() {
	webserver.ApiPOST("/system/jobs/:name/run", runJob)
	webserver.ApiGET("/system/metrics/:name", queryMetric)
}

// runJob triggers a background job immediately
func runJob(c echo.Context) error {
	name := c.Param("name")
	if err := GetAppContext(c).RunJobNow(name); err != nil {
		if errors.Is(err, app.ErrUnknownJob) {
			return fail(c, http.StatusNotFound, "UNKNOWN_JOB", "Unknown job", name)
		}
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// queryMetric samples of a metric between from and to, today by default
func queryMetric(c echo.Context) error {
	from, to, err := reporting.ParseRange(c.QueryParam("from"), c.QueryParam("to"),
		GetAppContext(c).Reporter().Now())
	if err != nil {
		return failErr(c, err)
	}
	points, err := metrics.Query(c.Param("name"), from, to)
	if err != nil {
		return failErr(c, err)
	}
	if points == nil {
		points = []metrics.Point{}
	}
	return ok(c, points)
}
