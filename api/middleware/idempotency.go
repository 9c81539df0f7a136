package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/univend-backend/api/responses"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/univend-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = time.Minute

	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotency-Replayed"
)

// idempotencyRule covers one POST route. Path segments written as "*" match
// any single segment. Required rules reject requests without a key; the rest
// only replay when the client sends one.
type idempotencyRule struct {
	method   string
	segments []string
	ttl      time.Duration
	required bool
}

func rule(method, path string, ttl time.Duration, required bool) idempotencyRule {
	return idempotencyRule{method: method, segments: splitPath(path), ttl: ttl, required: required}
}

var idempotencyRules = []idempotencyRule{
	rule(http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true),
	rule(http.MethodPost, "/api/v1/wallet/fund", criticalIdempotencyTTL, true),
	rule(http.MethodPost, "/api/v1/orders/*/accept", criticalIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/orders/*/cancel", criticalIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/orders/*/delivered", criticalIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/orders/*/reject", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/deliveries/*/claim", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/deliveries/*/picked-up", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/products", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/products/*/reviews", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/chats/*/messages", defaultIdempotencyTTL, false),
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func (r idempotencyRule) matches(method string, segments []string) bool {
	if r.method != method || len(r.segments) != len(segments) {
		return false
	}
	for i, want := range r.segments {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

// matchRule matches against the raw request path; chi's route pattern is
// still partial while group middleware runs.
func matchRule(method, path string) (idempotencyRule, bool) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return idempotencyRule{}, false
	}
	segments := splitPath(path)
	for _, candidate := range idempotencyRules {
		if candidate.matches(method, segments) {
			return candidate, true
		}
	}
	return idempotencyRule{}, false
}

// storedResponse is what lands in Redis under an idempotency key. A pending
// entry marks a request that is still running.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first completed response for a (user, route, key)
// triple. Reusing a key with a different body, or while the first request is
// still running, is a conflict. 5xx responses are not kept so clients can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matched, ok := matchRule(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if clientKey == "" {
				if matched.required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintBody(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			claimed, err := claimKey(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				existing, err := loadResponse(ctx, store, key)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
					return
				}
				switch {
				case existing == nil:
					// expired between claim and load; treat as a fresh request
					next.ServeHTTP(w, r)
				case existing.Fingerprint != fingerprint:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
				default:
					replay(w, existing)
				}
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			if err := store.Del(ctx, key); err != nil {
				logIdempotencyFailure(ctx, logg, "release idempotency key", err)
			}
			if capture.status >= http.StatusInternalServerError {
				return
			}
			record := storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}
			if err := saveResponse(ctx, store, key, record, matched.ttl); err != nil {
				logIdempotencyFailure(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func claimKey(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	marker, err := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), inFlightTTL)
}

func loadResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, record storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func replay(w http.ResponseWriter, record *storedResponse) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(idempotencyReplayHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func logIdempotencyFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
