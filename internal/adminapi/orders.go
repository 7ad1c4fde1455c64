package adminapi

import (
	"net/http"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

type transitionPayload struct {
	State domain.OrderState `json:"state"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/orders", listSessionOrders)
	webserver.ApiGET("/orders/active", listActiveOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPOST("/orders", createOrder)
	webserver.ApiPUT("/orders/:id/lines", editOrderLines)
	webserver.ApiPOST("/orders/:id/transition", transitionOrder)
}

func createOrder(c echo.Context) error {
	actor, err := operatorID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_OPERATOR", err.Error(), nil)
	}
	var payload orders.CreateRequest
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	order, err := GetAppContext(c).Orders().Create(c.Request().Context(), payload, actor)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "OK", Msg: "success", Data: order})
}

func getOrder(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	order, err := GetAppContext(c).Orders().Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, order)
}

func listActiveOrders(c echo.Context) error {
	rows, err := GetAppContext(c).Orders().ListActive(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

// listSessionOrders orders of session_id, optionally filtered by state
func listSessionOrders(c echo.Context) error {
	sessionID, err := cast.ToInt64E(c.QueryParam("session_id"))
	if err != nil || sessionID <= 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "session_id is required", nil)
	}
	page, pageSize := parsePagination(c)
	rows, err := GetAppContext(c).Orders().ListBySessionAndState(c.Request().Context(), sessionID,
		domain.OrderState(c.QueryParam("state")))
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, pageOf(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func editOrderLines(c echo.Context) error {
	actor, err := operatorID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_OPERATOR", err.Error(), nil)
	}
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orders.EditRequest
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse lines", err.Error())
	}
	order, err := GetAppContext(c).Orders().EditLines(c.Request().Context(), id, payload, actor)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, order)
}

func transitionOrder(c echo.Context) error {
	actor, err := operatorID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_OPERATOR", err.Error(), nil)
	}
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload transitionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse transition", err.Error())
	}
	order, err := GetAppContext(c).Orders().Transition(c.Request().Context(), id, payload.State, actor)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, order)
}
