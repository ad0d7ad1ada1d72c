package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spigell/gigboard/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxErrorBody    = 200
)

// getRows makes GET requests to a table and returns rows from all Range windows.
func (c *Client) getRows(ctx context.Context, table string, q url.Values) ([]any, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var rows []any
	for from := 0; ; from += pageSize {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(table), nil)
		if err != nil {
			return nil, err
		}

		c.setHeaders(req)
		req.Header.Set("Accept", contentType)
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", from, from+pageSize-1))
		if q != nil {
			req.URL.RawQuery = q.Encode()
		}

		var page []any
		if err := c.do(req, &page, http.StatusOK, http.StatusPartialContent); err != nil {
			return nil, fmt.Errorf("get %s: %w", table, err)
		}

		rows = append(rows, page...)

		if len(page) < pageSize {
			break
		}

		c.logger.Debug("additional request needed", zap.String("table", table), zap.Int("rows so far", len(rows)))
	}

	return rows, nil
}

func (c *Client) patchJSON(ctx context.Context, table string, q url.Values, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.tableURL(table), bytes.NewReader(data))
	if err != nil {
		return err
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Prefer", "return=minimal")
	req.URL.RawQuery = q.Encode()

	if err := c.do(req, nil, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("patch %s: %w", table, err)
	}

	return nil
}

// do sends req and decodes the (possibly gzipped) JSON body into target when it is not nil.
func (c *Client) do(req *http.Request, target any, accepted ...int) error {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if !statusIn(resp.StatusCode, accepted) {
		return fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(string(data), maxErrorBody))
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

func statusIn(code int, accepted []int) bool {
	for _, a := range accepted {
		if code == a {
			return true
		}
	}
	return false
}
