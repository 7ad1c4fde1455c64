package adminapi

import (
	"net/http"
	"strings"

	"github.com/alocode/restopos/internal/catalog"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

func registerTableRoutes() {
	webserver.ApiGET("/tables", listTables)
	webserver.ApiPOST("/tables", createTable)
	webserver.ApiPUT("/tables/:id", updateTable)
	webserver.ApiPOST("/tables/:id/active", setTableActive)
}

// listTables supports q and available=true
func listTables(c echo.Context) error {
	svc := GetAppContext(c).Catalog()
	ctx := c.Request().Context()

	var (
		rows []*domain.DiningTable
		err  error
	)
	switch {
	case strings.TrimSpace(c.QueryParam("q")) != "":
		rows, err = svc.SearchTables(ctx, strings.TrimSpace(c.QueryParam("q")))
	case cast.ToBool(c.QueryParam("available")):
		rows, err = svc.ListAvailableTables(ctx)
	default:
		rows, err = svc.ListTables(ctx)
	}
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

func createTable(c echo.Context) error {
	var payload catalog.TableInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse table", err.Error())
	}
	payload.ID = 0
	t, err := GetAppContext(c).Catalog().SaveTable(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "OK", Msg: "success", Data: t})
}

func updateTable(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid table ID", nil)
	}
	var payload catalog.TableInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse table", err.Error())
	}
	payload.ID = id
	t, err := GetAppContext(c).Catalog().SaveTable(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, t)
}

func setTableActive(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid table ID", nil)
	}
	var payload activePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	t, err := GetAppContext(c).Catalog().SetTableActive(c.Request().Context(), id, payload.Active)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, t)
}
