package httpcontext

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/crm-analytics/pkg/logger"
)

func TestAttachGeneratesRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set(HeaderTenantID, " tenant-a ")
	rc.Request.Header.Set(HeaderUserID, "user-9")

	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	reqID := string(rc.Response.Header.Peek(HeaderRequestID))
	_, err := uuid.Parse(reqID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", appLogger.TenantFromContext(ctx))
	assert.Equal(t, "user-9", ctx.Value(KeyUserID))

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestAttachKeepsIncomingRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set(HeaderRequestID, "abc-123")

	ctx, cancel := NewAdapter(0).Attach(&rc)
	defer cancel()

	assert.Equal(t, "abc-123", string(rc.Response.Header.Peek(HeaderRequestID)))
	assert.Empty(t, appLogger.TenantFromContext(ctx))
	assert.Nil(t, ctx.Value(KeyUserID))
}
