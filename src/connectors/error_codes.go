package connectors

import (
	"fmt"
	"net/http"
)

// FinnhubErrorCodes maps Finnhub HTTP statuses to short messages.
var FinnhubErrorCodes = map[int]string{
	http.StatusUnauthorized:        "FINNHUB_INVALID_TOKEN",
	http.StatusForbidden:           "FINNHUB_PLAN_RESTRICTED",
	http.StatusNotFound:            "FINNHUB_UNKNOWN_ENDPOINT",
	http.StatusTooManyRequests:     "FINNHUB_RATE_LIMITED",
	http.StatusInternalServerError: "FINNHUB_SERVER_ERROR",
	http.StatusBadGateway:          "FINNHUB_BAD_GATEWAY",
	http.StatusServiceUnavailable:  "FINNHUB_UNAVAILABLE",
}

// GetErrorMsg returns a human-readable message for a given status code.
// If the code is unknown, returns a generic message including the code.
func GetErrorMsg(code int) string {
	if msg, ok := FinnhubErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_FINNHUB_ERROR_%d", code)
}
