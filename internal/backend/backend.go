// Package backend talks to the marketplace's hosted REST API (PostgREST style).
package backend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	restPath         = "/rest/v1"
	defaultUserAgent = "spigell/gigboard (+https://github.com/spigell/gigboard)"
	// Rows requested per Range window.
	defaultPageSize = 1000
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

type Client struct {
	key        string
	logger     *zap.Logger
	now        func() time.Time
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
	PageSize   int
}

// New returns a client for the project at baseURL authenticated with the project API key.
func New(logger *zap.Logger, baseURL, key string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		key:    key,
		logger: logger,
		now:    time.Now,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: defaultUserAgent,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		PageSize:  defaultPageSize,
	}
}

func (c *Client) tableURL(table string) string {
	return c.BaseURL + restPath + "/" + table
}
