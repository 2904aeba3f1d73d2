package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/bodaconnect/review-service/pkg/errors"
	"github.com/bodaconnect/review-service/pkg/httpclient"
)

// Gateway resolves bookings from the Booking Service.
type Gateway interface {
	// GetBooking fetches a booking by ID. An unreachable Booking Service
	// maps to a dependency error (503, retryable by the caller).
	GetBooking(ctx context.Context, id string) (*Booking, error)
}

// HTTPGateway is the HTTP implementation of Gateway, calling the Booking
// Service through the retrying circuit-breaker client.
type HTTPGateway struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway against the given Booking Service base URL.
func NewHTTPGateway(baseURL string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// GetBooking fetches a booking by ID.
func (g *HTTPGateway) GetBooking(ctx context.Context, id string) (*Booking, error) {
	url := fmt.Sprintf("%s/api/v1/bookings/%s", g.baseURL, id)

	resp, err := g.client.Get(ctx, url)
	if err != nil {
		g.logger.WarnContext(ctx, "booking service call failed",
			slog.String("booking_id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Dependency("booking-service", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, apperrors.NotFound("booking", id)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "booking-service")
	}

	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Data *Booking `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.Dependency("booking-service", fmt.Errorf("decode booking response: %w", err))
	}
	if envelope.Data == nil {
		return nil, apperrors.Dependency("booking-service", fmt.Errorf("empty booking response"))
	}

	return envelope.Data, nil
}
