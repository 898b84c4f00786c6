package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm-analytics/api/transport"
	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/pkg/httpcontext"
)

// AnalyticsService computes customer snapshots.
type AnalyticsService interface {
	CustomerAnalytics(ctx context.Context, tenantID, customerID string, asOf *time.Time) (*domain.CustomerAnalytics, error)
}

type AnalyticsHandler struct {
	baseHandler
	uc AnalyticsService
}

func NewAnalyticsHandler(uc AnalyticsService, adapter *httpcontext.Adapter, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Customer analytics snapshot
// @Tags analytics
// @Param id path string true "Customer ID"
// @Param as_of query string false "Reference instant (RFC 3339 or YYYY-MM-DD)"
// @Router /api/v1/customers/{id}/analytics [get]
func (h *AnalyticsHandler) GetCustomerAnalytics(ctx *fasthttp.RequestCtx) {
	tenantID := httpcontext.TenantID(ctx)
	if tenantID == "" {
		h.respondError(ctx, domain.ErrMissingTenant)
		return
	}

	customerID, _ := ctx.UserValue("id").(string)
	if strings.TrimSpace(customerID) == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "customer id is required"))
		return
	}

	query, err := transport.ParseAnalyticsQuery(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, err.Error()))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	snapshot, err := h.uc.CustomerAnalytics(stdCtx, tenantID, customerID, query.AsOf)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, snapshot)
}
