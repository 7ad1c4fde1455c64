package adminapi

import (
	"net/http"

	"github.com/alocode/restopos/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type openPayload struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

func registerRegisterRoutes() {
	webserver.ApiGET("/registers", listRegisters)
	webserver.ApiGET("/registers/today", todayRegister)
	webserver.ApiGET("/registers/:id/summary", registerSummary)
	webserver.ApiPOST("/registers/open", openRegister)
	webserver.ApiPOST("/registers/:id/close", closeRegister)
}

func openRegister(c echo.Context) error {
	actor, err := operatorID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_OPERATOR", err.Error(), nil)
	}
	var payload openPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	session, err := GetAppContext(c).Registers().Open(c.Request().Context(), payload.OpeningFloat, actor)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "OK", Msg: "success", Data: session})
}

func closeRegister(c echo.Context) error {
	actor, err := operatorID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_OPERATOR", err.Error(), nil)
	}
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID", nil)
	}
	closing, err := GetAppContext(c).Registers().Close(c.Request().Context(), id, actor)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, closing)
}

func todayRegister(c echo.Context) error {
	session, err := GetAppContext(c).Registers().OpenToday(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, session)
}

// listRegisters sessions of date, today when absent
func listRegisters(c echo.Context) error {
	appCtx := GetAppContext(c)
	date := c.QueryParam("date")
	if date == "" {
		date = appCtx.Reporter().Today()
	}
	rows, err := appCtx.Registers().ListByDate(c.Request().Context(), date)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

func registerSummary(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID", nil)
	}
	summary, err := GetAppContext(c).Registers().Summary(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, summary)
}
