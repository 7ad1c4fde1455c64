package adminapi

import (
	"net/http"
	"strings"

	"github.com/alocode/restopos/internal/catalog"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type restockPayload struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type activePayload struct {
	Active bool `json:"active"`
}

func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/availability", productAvailability)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiGET("/products/:id/movements", productMovements)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiPOST("/products/:id/restock", restockProduct)
	webserver.ApiPOST("/products/:id/active", setProductActive)
}

// listProducts supports q (name search) and active=true
func listProducts(c echo.Context) error {
	svc := GetAppContext(c).Catalog()
	page, pageSize := parsePagination(c)

	var (
		rows []*domain.Product
		err  error
	)
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		rows, err = svc.SearchProducts(c.Request().Context(), q)
	} else {
		rows, err = svc.ListProducts(c.Request().Context(), cast.ToBool(c.QueryParam("active")))
	}
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, pageOf(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func productAvailability(c echo.Context) error {
	rows, err := GetAppContext(c).Catalog().Availability(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetAppContext(c).Catalog().GetProduct(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func productMovements(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := GetAppContext(c).Catalog().Movements(c.Request().Context(), id, limit)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

func createProduct(c echo.Context) error {
	var payload catalog.ProductInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.ID = 0
	p, err := GetAppContext(c).Catalog().SaveProduct(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(http.StatusCreated, Response{Code: "OK", Msg: "success", Data: p})
}

func updateProduct(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload catalog.ProductInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.ID = id
	p, err := GetAppContext(c).Catalog().SaveProduct(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func restockProduct(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload restockPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse restock", err.Error())
	}
	p, err := GetAppContext(c).Catalog().Restock(c.Request().Context(), id, payload.Quantity)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func setProductActive(c echo.Context) error {
	id, valid := parseID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload activePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	p, err := GetAppContext(c).Catalog().SetProductActive(c.Request().Context(), id, payload.Active)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}
