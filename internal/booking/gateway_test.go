package booking

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodaconnect/review-service/internal/domain"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
	"github.com/bodaconnect/review-service/pkg/httpclient"
)

func testGateway(t *testing.T, srv *httptest.Server) *HTTPGateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 2}),
		httpclient.DefaultCircuitBreakerConfig("booking-test"),
		logger,
	)
	return NewHTTPGateway(srv.URL, client, logger)
}

func TestHTTPGateway_GetBooking_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bookings/booking-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"booking-1","client_id":"client-1","supplier_id":"supplier-1","status":"completed","service_category":"photography","service_date":"2026-07-01T00:00:00Z"}}`))
	}))
	defer srv.Close()

	b, err := testGateway(t, srv).GetBooking(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", b.ID)
	assert.True(t, b.IsCompleted())
}

func TestHTTPGateway_GetBooking_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testGateway(t, srv).GetBooking(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHTTPGateway_GetBooking_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	_, err := testGateway(t, srv).GetBooking(context.Background(), "booking-1")
	assert.ErrorIs(t, err, apperrors.ErrDependency)
}

func TestBooking_PartyRole(t *testing.T) {
	b := &Booking{ClientID: "c1", SupplierID: "s1"}

	role, ok := b.PartyRole("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleClient, role)

	role, ok = b.PartyRole("s1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleSupplier, role)

	_, ok = b.PartyRole("stranger")
	assert.False(t, ok)
}

func TestBooking_Counterpart(t *testing.T) {
	b := &Booking{ClientID: "c1", SupplierID: "s1"}

	id, role, ok := b.Counterpart("c1")
	require.True(t, ok)
	assert.Equal(t, "s1", id)
	assert.Equal(t, domain.RoleSupplier, role)

	id, role, ok = b.Counterpart("s1")
	require.True(t, ok)
	assert.Equal(t, "c1", id)
	assert.Equal(t, domain.RoleClient, role)

	_, _, ok = b.Counterpart("stranger")
	assert.False(t, ok)
}
