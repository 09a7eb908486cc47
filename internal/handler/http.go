package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/payment"
	"github.com/minhngo-dev/storefront-checkout/internal/service"
	"github.com/minhngo-dev/storefront-checkout/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const customerHeader = "X-Customer-Ref"

var vnMobilePattern = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)\d{8}$`)

type CheckoutService interface {
	Submit(ctx context.Context, input service.CheckoutInput) (service.CheckoutResult, error)
}

type OrderService interface {
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	ListByCustomer(ctx context.Context, customerRef string, limit int) ([]entities.Order, error)
	ChangeStatus(ctx context.Context, orderID string, to entities.Status, actor, reason string) (entities.Order, error)
}

type PaymentService interface {
	CreatePaymentURL(ctx context.Context, orderID, clientIP string) (string, error)
	Reconcile(ctx context.Context, values url.Values) (entities.Order, error)
}

type DraftService interface {
	Get(ctx context.Context, customerRef string) (entities.CheckoutDraft, error)
	Update(ctx context.Context, customerRef string, update service.DraftUpdate) (entities.CheckoutDraft, error)
	RefreshQuote(ctx context.Context, customerRef string) (entities.CheckoutDraft, error)
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	checkout CheckoutService
	orders   OrderService
	payments PaymentService
	drafts   DraftService
}

func NewHTTPHandler(
	logger *slog.Logger,
	checkout CheckoutService,
	orders OrderService,
	payments PaymentService,
	drafts DraftService,
) *HTTPHandler {
	validate := validator.New()
	validate.RegisterValidation("vn_mobile", func(fl validator.FieldLevel) bool {
		return vnMobilePattern.MatchString(fl.Field().String())
	})

	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validate,
		checkout: checkout,
		orders:   orders,
		payments: payments,
		drafts:   drafts,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{order_id}", h.GetOrderByID)
		r.Post("/orders/{order_id}/status", h.UpdateStatus)
		r.Post("/orders/{order_id}/payment-url", h.CreatePaymentURL)
		r.Get("/draft", h.GetDraft)
		r.Put("/draft/address", h.UpdateDraftAddress)
		r.Post("/draft/quote", h.RefreshQuote)
		r.Get("/payment/vnpay/return", h.PaymentReturn)
	})
}

// Checkout submits the customer's cart as an order.
// @Summary      Submit checkout
// @Description  Snapshots the cart, prices shipping and creates a pending order
// @Tags         checkout
// @Param        X-Customer-Ref  header  string           true  "Customer reference"
// @Param        request         body    CheckoutRequest  true  "Recipient and shipping address"
// @Success      201  {object}  CheckoutResponse
// @Failure      400  {object}  utils.ValidationErrorResponse "Validation error"
// @Failure      409  {object}  StockConflictResponse "Insufficient stock"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/checkout [post]
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerRef := r.Header.Get(customerHeader)
	if customerRef == "" {
		utils.WriteError(w, "customer reference is required", http.StatusBadRequest)
		return
	}

	var req CheckoutRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		checkoutRejected.WithLabelValues("validation").Inc()
		utils.WriteValidationError(w, err)
		return
	}

	result, err := h.checkout.Submit(ctx, service.CheckoutInput{
		CustomerRef: customerRef,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Address:     AddressJSONToEntity(req.Address),
	})

	var insufficient *entities.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		checkoutRejected.WithLabelValues("stock").Inc()
		stockConflicts.Add(float64(len(insufficient.Shortages)))
		utils.WriteJSON(w, StockConflictResponse{
			Message:   "insufficient stock",
			Shortages: ShortagesToJSON(insufficient.Shortages),
		}, http.StatusConflict)
		return
	case errors.Is(err, entities.ErrEmptyCart):
		checkoutRejected.WithLabelValues("empty_cart").Inc()
		utils.WriteError(w, "cart is empty", http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrInvalidCheckout):
		checkoutRejected.WithLabelValues("validation").Inc()
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		checkoutRejected.WithLabelValues("internal").Inc()
		h.logger.ErrorContext(ctx, "checkout failed", slog.Any("error", err), slog.String("customer_ref", customerRef))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	checkoutAccepted.Inc()
	if result.Order.ShippingFee == 0 {
		for _, warning := range result.Warnings {
			if strings.Contains(warning, "shipping fee") {
				quoteDegradations.Inc()
			}
		}
	}

	utils.WriteJSON(w, CheckoutResponse{
		Order:    OrderEntityToJSON(result.Order),
		Warnings: result.Warnings,
	}, http.StatusCreated)
}

// GetOrderByID returns one order.
// @Summary      Get order by ID
// @Tags         orders
// @Param        order_id  path  string  true  "Order identifier"
// @Success      200  {object}  Order
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/orders/{order_id} [get]
func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)

	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order", slog.Any("error", err), slog.String("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ListOrders returns the customer's most recent orders.
// @Summary      List orders for a customer
// @Tags         orders
// @Param        X-Customer-Ref  header  string  true   "Customer reference"
// @Param        limit           query   int     false  "Page size"
// @Success      200  {array}   Order
// @Failure      400  {object}  utils.ErrorResponse "Missing customer reference"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/orders [get]
func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerRef := r.Header.Get(customerHeader)
	if customerRef == "" {
		utils.WriteError(w, "customer reference is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := h.orders.ListByCustomer(ctx, customerRef, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list orders", slog.Any("error", err), slog.String("customer_ref", customerRef))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderEntityToJSON(o))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

// UpdateStatus applies a manual status transition.
// @Summary      Change order status
// @Tags         orders
// @Param        order_id  path  string               true  "Order identifier"
// @Param        request   body  StatusUpdateRequest  true  "Target status, actor and reason"
// @Success      200  {object}  Order
// @Failure      400  {object}  utils.ValidationErrorResponse "Validation error"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Transition not allowed"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/orders/{order_id}/status [post]
func (h *HTTPHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	var req StatusUpdateRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	to := entities.Status(req.Status)
	if !to.Known() {
		utils.WriteError(w, "unknown status", http.StatusBadRequest)
		return
	}

	order, err := h.orders.ChangeStatus(ctx, orderID, to, req.Actor, req.Reason)

	switch {
	case errors.Is(err, entities.ErrOrderNotFound):
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	case errors.Is(err, entities.ErrInvalidTransition):
		utils.WriteError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to change order status",
			slog.Any("error", err),
			slog.String("order_id", orderID),
			slog.String("to", req.Status),
		)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	statusTransitions.WithLabelValues(req.Status).Inc()
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// CreatePaymentURL builds the gateway redirect for a pending order.
// @Summary      Create payment URL
// @Tags         payment
// @Param        order_id  path  string  true  "Order identifier"
// @Success      200  {object}  PaymentURLResponse
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Order is not awaiting payment"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/orders/{order_id}/payment-url [post]
func (h *HTTPHandler) CreatePaymentURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	paymentURL, err := h.payments.CreatePaymentURL(ctx, orderID, clientIP(r))

	switch {
	case errors.Is(err, entities.ErrOrderNotFound):
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrNotPayable):
		utils.WriteError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to create payment url", slog.Any("error", err), slog.String("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, PaymentURLResponse{PaymentURL: paymentURL}, http.StatusOK)
}

// PaymentReturn reconciles the gateway return redirect onto the order.
// @Summary      VNPay return callback
// @Tags         payment
// @Success      200  {object}  Order
// @Failure      400  {object}  utils.ErrorResponse "Invalid signature"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Order already progressed"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/payment/vnpay/return [get]
func (h *HTTPHandler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.payments.Reconcile(ctx, r.URL.Query())

	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		paymentCallbacks.WithLabelValues("rejected").Inc()
		utils.WriteError(w, "invalid signature", http.StatusBadRequest)
		return
	case errors.Is(err, entities.ErrOrderNotFound):
		paymentCallbacks.WithLabelValues("rejected").Inc()
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrStaleCallback):
		paymentCallbacks.WithLabelValues("stale").Inc()
		utils.WriteError(w, "order has already progressed", http.StatusConflict)
		return
	case err != nil:
		paymentCallbacks.WithLabelValues("error").Inc()
		h.logger.ErrorContext(ctx, "failed to reconcile payment", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if order.Status == entities.StatusPaid {
		paymentCallbacks.WithLabelValues("paid").Inc()
	} else {
		paymentCallbacks.WithLabelValues("failed").Inc()
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// GetDraft returns the customer's checkout draft.
// @Summary      Get checkout draft
// @Tags         draft
// @Param        X-Customer-Ref  header  string  true  "Customer reference"
// @Success      200  {object}  Draft
// @Failure      400  {object}  utils.ErrorResponse "Missing customer reference"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/draft [get]
func (h *HTTPHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerRef := r.Header.Get(customerHeader)
	if customerRef == "" {
		utils.WriteError(w, "customer reference is required", http.StatusBadRequest)
		return
	}

	draft, err := h.drafts.Get(ctx, customerRef)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get draft", slog.Any("error", err), slog.String("customer_ref", customerRef))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, DraftEntityToJSON(draft), http.StatusOK)
}

// UpdateDraftAddress applies recipient and address edits to the draft.
// @Summary      Update draft address
// @Tags         draft
// @Param        X-Customer-Ref  header  string               true  "Customer reference"
// @Param        request         body    DraftAddressRequest  true  "Partial edits"
// @Success      200  {object}  Draft
// @Failure      400  {object}  utils.ValidationErrorResponse "Validation error"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/draft/address [put]
func (h *HTTPHandler) UpdateDraftAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerRef := r.Header.Get(customerHeader)
	if customerRef == "" {
		utils.WriteError(w, "customer reference is required", http.StatusBadRequest)
		return
	}

	var req DraftAddressRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	draft, err := h.drafts.Update(ctx, customerRef, DraftUpdateFromRequest(req))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update draft", slog.Any("error", err), slog.String("customer_ref", customerRef))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if draft.Quote != nil && draft.Quote.Degraded {
		quoteDegradations.Inc()
	}
	utils.WriteJSON(w, DraftEntityToJSON(draft), http.StatusOK)
}

// RefreshQuote recomputes the shipping fee for the current cart and address.
// @Summary      Refresh shipping quote
// @Tags         draft
// @Param        X-Customer-Ref  header  string  true  "Customer reference"
// @Success      200  {object}  Draft
// @Failure      400  {object}  utils.ErrorResponse "Missing customer reference"
// @Failure      422  {object}  utils.ErrorResponse "Address not resolved"
// @Failure      500  {object}  utils.ErrorResponse "Internal server error"
// @Router       /api/draft/quote [post]
func (h *HTTPHandler) RefreshQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerRef := r.Header.Get(customerHeader)
	if customerRef == "" {
		utils.WriteError(w, "customer reference is required", http.StatusBadRequest)
		return
	}

	draft, err := h.drafts.RefreshQuote(ctx, customerRef)

	switch {
	case errors.Is(err, service.ErrAddressUnresolved):
		utils.WriteError(w, "address is not fully resolved", http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to refresh quote", slog.Any("error", err), slog.String("customer_ref", customerRef))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if draft.Quote != nil && draft.Quote.Degraded {
		quoteDegradations.Inc()
	}
	utils.WriteJSON(w, DraftEntityToJSON(draft), http.StatusOK)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
