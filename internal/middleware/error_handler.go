package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/fees"
	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/repository"
	"github.com/anyulbade/furniture-credit/internal/service"
)

func MapDBError(err error) (int, dto.ErrorResponse) {
	if errors.Is(err, pgx.ErrNoRows) {
		return http.StatusNotFound, dto.ErrorResponse{Error: "resource not found"}
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return http.StatusConflict, dto.ErrorResponse{Error: "resource was modified concurrently, retry the request"}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return http.StatusConflict, dto.ErrorResponse{
				Error:   "resource already exists",
				Details: pgErr.Detail,
			}
		case "23503": // foreign_key_violation
			return http.StatusBadRequest, dto.ErrorResponse{
				Error:   "referenced resource does not exist",
				Details: pgErr.Detail,
			}
		case "23514": // check_violation
			return http.StatusBadRequest, dto.ErrorResponse{
				Error:   "constraint violation",
				Details: pgErr.Detail,
			}
		}
	}

	log.Error().Err(err).Msg("unhandled database error")
	return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"}
}

// MapError turns a service, provider or database error into a response.
// Provider bodies and causes are only included when showDetails is set.
func MapError(err error, showDetails bool) (int, dto.ErrorResponse) {
	var (
		validation  *service.ValidationError
		stock       *service.InsufficientStockError
		credit      *service.InsufficientCreditError
		unavailable *service.ProductUnavailableError
		paid        *service.AlreadyPaidError
		reservation *service.ReservationError
		duration    *fees.InvalidDurationError
		provider    *kredika.RequestError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, dto.ErrorResponse{Error: validation.Error()}
	case errors.As(err, &duration):
		return http.StatusBadRequest, dto.ErrorResponse{Error: duration.Error()}
	case errors.As(err, &stock):
		return http.StatusBadRequest, dto.ErrorResponse{Error: stock.Error()}
	case errors.As(err, &unavailable):
		return http.StatusBadRequest, dto.ErrorResponse{Error: unavailable.Error()}
	case errors.As(err, &credit):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "credit not eligible", Reasons: credit.Reasons}
	case errors.As(err, &paid):
		return http.StatusConflict, dto.ErrorResponse{Error: paid.Error()}

	case errors.Is(err, kredika.ErrCredentialsMissing):
		log.Error().Err(err).Msg("credit provider is not configured")
		return http.StatusInternalServerError, dto.ErrorResponse{Error: "credit service configuration error"}

	case errors.As(err, &reservation):
		status := http.StatusBadRequest
		if errors.As(err, &provider) && provider.Transient() {
			status = http.StatusBadGateway
		}
		resp := dto.ErrorResponse{Error: reservation.Error()}
		if showDetails {
			resp.Details = reservation.Err.Error()
		}
		return status, resp

	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrInstallmentNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, dto.ErrorResponse{Error: err.Error()}

	case errors.Is(err, service.ErrInvalidWebhookSignature):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature"}
	case errors.Is(err, service.ErrNotCreditOrder),
		errors.Is(err, service.ErrOrderNotCancellable):
		return http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()}

	case errors.As(err, &provider):
		log.Error().Err(err).Int("provider_status", provider.Status).Msg("credit provider call failed")
		status := http.StatusBadGateway
		if provider.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		resp := dto.ErrorResponse{Error: "credit provider request failed"}
		if showDetails {
			resp.Details = provider.Error()
		}
		return status, resp
	}

	return MapDBError(err)
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(showDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			status, resp := MapError(err, showDetails)
			c.JSON(status, resp)
		}
	}
}
