package errors

import "net/http"

// Code classifies a failure so callers can render a precise message without
// inspecting error strings.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeProductUnavailable Code = "PRODUCT_NO_LONGER_AVAILABLE"
	CodeTransitionFailed   Code = "TRANSITION_FAILED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata drives how a Code is rendered over HTTP. ExposeMessage lets the
// error's own message replace PublicMessage in the response body.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

type metaOption func(*Metadata)

var (
	exposed    metaOption = func(m *Metadata) { m.ExposeMessage = true }
	detailed   metaOption = func(m *Metadata) { m.DetailsAllowed = true }
	retryable  metaOption = func(m *Metadata) { m.Retryable = true }
	codeTables            = map[Code]Metadata{}
)

func register(code Code, status int, public string, opts ...metaOption) {
	m := Metadata{HTTPStatus: status, PublicMessage: public}
	for _, opt := range opts {
		opt(&m)
	}
	codeTables[code] = m
}

func init() {
	register(CodeValidation, http.StatusBadRequest, "validation failed", exposed, detailed)
	register(CodeUnauthorized, http.StatusUnauthorized, "authentication required", exposed)
	register(CodeForbidden, http.StatusForbidden, "access denied", exposed)
	register(CodeNotFound, http.StatusNotFound, "resource not found", exposed)
	register(CodeConflict, http.StatusConflict, "conflict detected", exposed)

	// lifecycle and ledger outcomes keep fixed client-facing copy
	register(CodeInvalidState, http.StatusConflict, "this order has already been actioned", detailed)
	register(CodeInsufficientFunds, http.StatusPaymentRequired, "insufficient balance, please fund wallet", detailed)
	register(CodeInvalidAmount, http.StatusBadRequest, "amount must be greater than zero")
	register(CodeProductUnavailable, http.StatusConflict, "one or more items are no longer available", exposed, detailed)
	register(CodeTransitionFailed, http.StatusServiceUnavailable, "the request could not be completed, please retry", retryable)
	register(CodeIdempotency, http.StatusConflict, "idempotency key reused", exposed, detailed)

	register(CodeInternal, http.StatusInternalServerError, "internal server error", retryable)
	register(CodeDependency, http.StatusServiceUnavailable, "dependency unavailable", retryable, detailed)
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := codeTables[code]; ok {
		return meta
	}
	return codeTables[CodeInternal]
}
