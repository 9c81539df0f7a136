package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var transientHTTP = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// BigQuery reports quota and backend hiccups with these reasons, sometimes
// behind a 4xx status.
var transientReasons = map[string]bool{
	"backendError":      true,
	"internalError":     true,
	"rateLimitExceeded": true,
}

var transientGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

// transient reports whether every underlying failure in err is worth another
// insert. A single bad row (schema mismatch, invalid value) makes the whole
// insert permanent.
func transient(err error) bool {
	leaves := leafErrors(err)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		if !transientLeaf(leaf) {
			return false
		}
	}
	return true
}

// leafErrors flattens the per-row error lists returned by streaming inserts.
func leafErrors(err error) []error {
	if err == nil {
		return nil
	}
	var put cbigquery.PutMultiError
	if errors.As(err, &put) {
		var out []error
		for _, row := range put {
			out = append(out, leafErrors(row.Errors)...)
		}
		return out
	}
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		var out []error
		for _, inner := range multi {
			out = append(out, leafErrors(inner)...)
		}
		return out
	}
	return []error{err}
}

func transientLeaf(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if transientHTTP[apiErr.Code] {
			return true
		}
		for _, item := range apiErr.Errors {
			if transientReasons[item.Reason] {
				return true
			}
		}
		return false
	}
	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		return transientGRPC[grpcErr.GRPCStatus().Code()]
	}
	return false
}
