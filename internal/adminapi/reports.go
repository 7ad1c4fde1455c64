package adminapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/alocode/restopos/internal/reporting"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/labstack/echo/v4"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func registerReportRoutes() {
	webserver.ApiGET("/reports/daily", dailyReport)
	webserver.ApiGET("/reports/daily.xlsx", dailyReportExcel)
	webserver.ApiGET("/reports/orders.csv", ordersCSV)
	webserver.ApiPOST("/reports/daily/mail", mailDailyReport)
}

func reportDate(c echo.Context) string {
	if d := c.QueryParam("date"); d != "" {
		return d
	}
	return GetAppContext(c).Reporter().Today()
}

func dailyReport(c echo.Context) error {
	report, err := GetAppContext(c).Reporter().Daily(c.Request().Context(), reportDate(c))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, report)
}

func dailyReportExcel(c echo.Context) error {
	report, err := GetAppContext(c).Reporter().Daily(c.Request().Context(), reportDate(c))
	if err != nil {
		return failErr(c, err)
	}
	var buf bytes.Buffer
	if err := reporting.WriteDailyExcel(&buf, report); err != nil {
		return failErr(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=report-%s.xlsx", report.Date))
	return c.Blob(http.StatusOK, xlsxMime, buf.Bytes())
}

// ordersCSV completed orders between from and to, today by default
func ordersCSV(c echo.Context) error {
	reporter := GetAppContext(c).Reporter()
	from, to, err := reporting.ParseRange(c.QueryParam("from"), c.QueryParam("to"), reporter.Now())
	if err != nil {
		return failErr(c, err)
	}
	rows, err := reporter.CompletedBetween(c.Request().Context(), from, to)
	if err != nil {
		return failErr(c, err)
	}
	var buf bytes.Buffer
	if err := reporting.WriteOrdersCSV(&buf, rows); err != nil {
		return failErr(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=orders.csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func mailDailyReport(c echo.Context) error {
	appCtx := GetAppContext(c)
	if !appCtx.Config().Mail.Enabled {
		return fail(c, http.StatusConflict, "MAIL_DISABLED", "Mail delivery is disabled", nil)
	}
	if err := appCtx.Mailer().SendDaily(c.Request().Context(), reportDate(c)); err != nil {
		return failErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
