package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/gateway"
	"github.com/u3m2a1/nibog-sub001/internal/identity"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	redisrepo "github.com/u3m2a1/nibog-sub001/internal/repository/redis"
	"github.com/u3m2a1/nibog-sub001/internal/service"
	"github.com/u3m2a1/nibog-sub001/internal/service/finalize"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
	"github.com/u3m2a1/nibog-sub001/internal/service/payment"
	"github.com/u3m2a1/nibog-sub001/internal/service/reconcile"
)

const webhookBodyLimit = 64 << 10

// NewRouter mounts the API. CORS is passed in through middlewares so the
// allowed origins come from configuration.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	ids *identity.Provider,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// checkout
	r.POST("/payments/initiate", handleInitiatePayment(svcs, idem, ids))
	r.GET("/payment-callback", handlePaymentCallback(svcs))
	r.POST("/payments/:txid/recheck", handleRecheckPayment(svcs))
	r.POST("/payments/webhook", handlePaymentWebhook(svcs))

	// bookings
	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.GET("/bookings/:id/ticket.pdf", handleTicketPDF(svcs))

	// certificates
	// TODO: put behind admin auth once operator accounts exist
	certs := r.Group("/certificates")
	{
		certs.POST("/bulk", handleBulkCertificates(svcs, logger))
		certs.POST("/retry", handleRetryCertificates(svcs, logger))
		certs.GET("/:id/pdf", handleCertificatePDF(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Start checkout (idempotent)
// @Param    req body  InitiatePaymentRequest true "payload"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} InitiatePaymentResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /payments/initiate [post]
func handleInitiatePayment(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	ids *identity.Provider,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey, lockToken string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemInitiate(idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}

			token, locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
			lockToken = token
		}

		intent := domain.TransactionIntent{
			UserID:     ids.GetOrCreateUserID(c),
			Parent:     req.Parent,
			Child:      req.Child,
			EventID:    req.EventID,
			Games:      req.Games,
			AddOns:     req.AddOns,
			TotalPaise: req.TotalPaise,
		}

		res, err := svcs.Payments.Initiate(c.Request.Context(), intent, "ip:"+c.ClientIP())
		if err != nil {
			if lockToken != "" {
				_ = idem.Release(context.WithoutCancel(c.Request.Context()), idemStorageKey, lockToken)
			}
			respondErr(c, err)
			return
		}

		resp := InitiatePaymentResponse{
			TransactionID: res.TransactionID,
			BookingID:     res.BookingID,
			RedirectURL:   res.RedirectURL,
		}

		if lockToken != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Resolve payment after the gateway redirect
// @Param    transactionId query string true "Transaction ID"
// @Param    bookingId     query string true "Temporary booking ID"
// @Success  200 {object} PaymentResponse "booking confirmed"
// @Success  202 {object} PaymentResponse "still processing"
// @Failure  400 {object} ErrorResponse "missing parameters"
// @Failure  402 {object} PaymentResponse "payment failed or cancelled"
// @Failure  409 {object} BookingIssueResponse "payment ok, booking issue"
// @Router   /payment-callback [get]
func handlePaymentCallback(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Payments.HandleCallback(
			c.Request.Context(),
			c.Query("transactionId"),
			c.Query("bookingId"),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOutcome(c, out)
	}
}

// @Summary  Check a payment once more
// @Param    txid path string true "Transaction ID"
// @Success  200 {object} PaymentResponse
// @Success  202 {object} PaymentResponse
// @Failure  402 {object} PaymentResponse
// @Failure  409 {object} BookingIssueResponse
// @Router   /payments/{txid}/recheck [post]
func handleRecheckPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Payments.Recheck(c.Request.Context(), c.Param("txid"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOutcome(c, out)
	}
}

// @Summary  Gateway server-to-server notification
// @Param    X-VERIFY header string true "checksum"
// @Success  200 {object} PaymentResponse
// @Failure  400 {object} ErrorResponse "undecodable body"
// @Failure  401 {object} ErrorResponse
// @Router   /payments/webhook [post]
func handlePaymentWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}

		out, err := svcs.Payments.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-VERIFY"))
		if err != nil {
			respondErr(c, err)
			return
		}

		// the gateway only needs an acknowledgement
		c.JSON(http.StatusOK, paymentResponse(out))
	}
}

// @Summary  Get booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Payments.Booking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, b, "private, max-age=30", true)
	}
}

// @Summary  Download ticket
// @Param    id  path  int  true  "Booking ID"
// @Produce  application/pdf
// @Success  200 {file} file
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id}/ticket.pdf [get]
func handleTicketPDF(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		doc, err := svcs.Payments.TicketPDF(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
		writeWithCache(c, http.StatusOK, "application/pdf", doc.PDF, "private, max-age=300", false)
	}
}

// @Summary  Generate certificates for an event
// @Param    req body  BulkCertificatesRequest true "payload"
// @Success  200 {object} domain.BulkGenerationProgress
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "template not found"
// @Failure  500 {object} PartialProgressResponse "stopped early"
// @Router   /certificates/bulk [post]
func handleBulkCertificates(svcs *service.Services, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkCertificatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		progress, err := svcs.Certificates.GenerateBulk(c.Request.Context(), req.toService(), logProgress(logger, req.EventID))
		if err != nil {
			respondPartial(c, progress, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

// @Summary  Retry failed certificates
// @Param    req body  RetryCertificatesRequest true "payload"
// @Success  200 {object} domain.BulkGenerationProgress
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} PartialProgressResponse "template not found"
// @Router   /certificates/retry [post]
func handleRetryCertificates(svcs *service.Services, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RetryCertificatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		progress, err := svcs.Certificates.RetryFailed(
			c.Request.Context(),
			req.Previous,
			req.toService(),
			logProgress(logger, req.EventID),
		)
		if err != nil {
			respondPartial(c, progress, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

// @Summary  Download certificate
// @Param    id  path  int  true  "Certificate ID"
// @Produce  application/pdf
// @Success  200 {file} file
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /certificates/{id}/pdf [get]
func handleCertificatePDF(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		cert, pdf, err := svcs.Certificates.Download(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="`+cert.CertificateNumber+`.pdf"`)
		writeWithCache(c, http.StatusOK, "application/pdf", pdf, "private, max-age=300", false)
	}
}

// --- Helpers ---

func (r BulkCertificatesRequest) toService() notify.BulkRequest {
	return notify.BulkRequest{
		TemplateID:   r.TemplateID,
		EventID:      r.EventID,
		GameID:       r.GameID,
		Participants: r.Participants,
	}
}

func logProgress(logger *slog.Logger, eventID int64) notify.ProgressFunc {
	return func(p domain.BulkGenerationProgress) {
		logger.Debug("certificate progress",
			"event_id", eventID,
			"done", p.Completed+p.Failed,
			"total", p.Total,
		)
	}
}

// respondPartial answers a certificate run that stopped with an error. Any
// results produced before it stopped are returned with the error status.
func respondPartial(c *gin.Context, progress domain.BulkGenerationProgress, err error) {
	if len(progress.Results) == 0 {
		respondErr(c, err)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, notify.ErrTemplateMissing):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		_ = c.Error(err)
	}

	c.JSON(status, PartialProgressResponse{
		Error:    "certificate run stopped early",
		Progress: progress,
	})
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
}

func paymentResponse(out payment.Outcome) PaymentResponse {
	resp := PaymentResponse{
		TransactionID: out.TransactionID,
		Status:        out.Status,
		Attempts:      out.Attempts,
	}
	if out.Booking != nil {
		resp.BookingID = out.Booking.ID
		resp.BookingRef = out.Booking.Ref
	}

	switch out.State {
	case reconcile.StateSuccess:
		resp.Message = "Booking confirmed"
	case reconcile.StateFailed, reconcile.StateCancelled:
		resp.Message = "Payment Failed"
		resp.RetryURL = "/payments/initiate"
	case reconcile.StateStillPending:
		resp.Message = "Payment is still processing"
		resp.RecheckURL = "/payments/" + url.PathEscape(out.TransactionID) + "/recheck"
	default:
		resp.Message = out.State.String()
	}

	return resp
}

func respondOutcome(c *gin.Context, out payment.Outcome) {
	status := http.StatusOK
	switch out.State {
	case reconcile.StateFailed, reconcile.StateCancelled:
		status = http.StatusPaymentRequired
	case reconcile.StateStillPending:
		status = http.StatusAccepted
	}
	c.JSON(status, paymentResponse(out))
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		rl    *payment.RateLimitError
		write *finalize.BookingWriteError
		lost  *finalize.UnrecoverableError
	)

	switch {
	// payment service
	case errors.Is(err, payment.ErrMissingParams):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: payment.ErrMissingParams.Error()})
	case errors.Is(err, payment.ErrInvalidIntent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Round(time.Second)/time.Second)))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rl.Error()})
	// finalizer
	case errors.As(err, &write):
		c.JSON(http.StatusConflict, BookingIssueResponse{
			Error:         "Payment successful, booking issue",
			TransactionID: write.TransactionID,
			Message:       "Your payment went through but the booking could not be saved. Please contact support with this transaction ID.",
		})
	case errors.As(err, &lost):
		c.JSON(http.StatusConflict, BookingIssueResponse{
			Error:         "Payment successful, booking issue",
			TransactionID: lost.TransactionID,
			Message:       "Your payment went through but we could not find your booking. Please contact support with this transaction ID.",
		})
	case errors.Is(err, finalize.ErrInProgress):
		c.Header("Retry-After", "2")
		c.JSON(http.StatusAccepted, ErrorResponse{Error: "booking is being confirmed"})
	// gateway
	case errors.Is(err, gateway.ErrMalformed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed notification"})
	case errors.Is(err, gateway.ErrChecksum):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid checksum"})
	case errors.Is(err, gateway.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "payment gateway unavailable"})
	case errors.Is(err, gateway.ErrGateway), errors.Is(err, gateway.ErrNoRedirect):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment gateway error"})
	// certificates
	case errors.Is(err, notify.ErrTemplateMissing):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "certificate template not found"})
	case errors.Is(err, notify.ErrNoParticipants):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no participants"})
	// repository
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "timeout"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
