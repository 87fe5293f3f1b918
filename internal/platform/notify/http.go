package notify

import (
	"net/http"
	"time"
)

const httpTimeout = 15 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
