package adminapi

import (
	"net/http"
	"strconv"

	"github.com/alocode/restopos/internal/app"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/internal/webserver"
	"github.com/alocode/restopos/pkg/common"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response envelope of every api reply
type Response struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// ListResponse paged list payload
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Init registers every admin route. Must run before webserver.NewWebServer.
func Init() {
	registerRegisterRoutes()
	registerOrderRoutes()
	registerProductRoutes()
	registerTableRoutes()
	registerReportRoutes()
	registerSystemRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Code: "OK", Msg: "success", Data: data})
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, Response{Code: code, Msg: msg, Data: detail})
}

func paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return ok(c, ListResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// parsePagination reads page and perPage (or pageSize), 1 and 20 by default
func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size := cast.ToInt(c.QueryParam("perPage"))
	if size == 0 {
		size = cast.ToInt(c.QueryParam("pageSize"))
	}
	if size < 1 || size > 500 {
		size = 20
	}
	return page, size
}

// pageOf slices an in-memory list
func pageOf[T any](rows []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(rows) {
		return []T{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// operatorID the acting operator, set by the upstream gateway. The operator
// must exist and be enabled.
func operatorID(c echo.Context) (int64, error) {
	appCtx := GetAppContext(c)
	header := appCtx.Config().Pos.OperatorHeader
	raw := c.Request().Header.Get(header)
	if raw == "" {
		return 0, errors.Errorf("missing %s header", header)
	}
	id, err := cast.ToInt64E(raw)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s header", header)
	}
	opr, err := repository.NewGormOperatorRepository(appCtx.DB()).GetByID(c.Request().Context(), id)
	if err != nil {
		return 0, err
	}
	if opr.Status != common.ENABLED {
		return 0, errors.Errorf("operator %d is disabled", id)
	}
	return id, nil
}

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrNoOpenSession, http.StatusConflict, "NO_OPEN_SESSION"},
	{domain.ErrSessionAlreadyOpen, http.StatusConflict, "SESSION_ALREADY_OPEN"},
	{domain.ErrSessionAlreadyClosed, http.StatusConflict, "SESSION_ALREADY_CLOSED"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{domain.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{domain.ErrTableNotFound, http.StatusNotFound, "TABLE_NOT_FOUND"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{domain.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrOrderAlreadyCompleted, http.StatusConflict, "ORDER_ALREADY_COMPLETED"},
	{domain.ErrTableUnavailable, http.StatusConflict, "TABLE_UNAVAILABLE"},
	{domain.ErrDuplicateTable, http.StatusConflict, "DUPLICATE_TABLE"},
	{domain.ErrProductInactive, http.StatusUnprocessableEntity, "PRODUCT_INACTIVE"},
	{domain.ErrInvalidConversion, http.StatusUnprocessableEntity, "INVALID_CONVERSION"},
	{domain.ErrInvalidOrder, http.StatusBadRequest, "INVALID_ORDER"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "INVALID_DATE"},
	{domain.ErrInvalidProduct, http.StatusBadRequest, "INVALID_PRODUCT"},
	{domain.ErrInvalidTable, http.StatusBadRequest, "INVALID_TABLE"},
}

// failErr maps a service error onto its status and code
func failErr(c echo.Context, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return fail(c, m.status, m.code, m.target.Error(), err.Error())
		}
	}
	zap.L().Error("admin api request failed",
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err),
		zap.String("namespace", "api"))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed", err.Error())
}
