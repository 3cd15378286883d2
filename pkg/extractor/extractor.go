// pkg/extractor/extractor.go
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// DefaultPageSize is used when the caller passes a non-positive page size
const DefaultPageSize = 100

// maxBodyBytes caps how much of a search response is read
const maxBodyBytes = 64 << 20

// searchResponse is the subset of the search payload the pipeline reads
type searchResponse struct {
	Products []model.RawRecord `json:"products"`
}

// Extractor fetches one page of products for a category from the search endpoint
type Extractor struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *zap.Logger
}

// NewExtractor creates an extractor whose requests are bounded by cfg.Timeout
func NewExtractor(cfg *config.SourceConfig, logger *zap.Logger) *Extractor {
	return NewExtractorWithClient(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

// NewExtractorWithClient creates an extractor on a caller supplied client
func NewExtractorWithClient(cfg *config.SourceConfig, client *http.Client, logger *zap.Logger) *Extractor {
	return &Extractor{
		client:    client,
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		logger:    logger.Named("extractor"),
	}
}

// Extract fetches up to pageSize products tagged with category. An empty
// product list is not an error. Transport failures, non-2xx responses and
// undecodable bodies are reported as SourceUnavailable.
func (e *Extractor) Extract(ctx context.Context, category string, pageSize int) ([]model.RawRecord, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("category is required")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := e.logger.With(zap.String("category", category), zap.Int("page_size", pageSize))
	logger.Info("Starting extraction")
	start := time.Now()

	reqURL, err := e.searchURL(category, pageSize)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Error("Search request failed", zap.Error(err))
		return nil, model.SourceUnavailable("search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		logger.Error("Search returned an error status", zap.Int("status", resp.StatusCode))
		return nil, model.SourceUnavailable(fmt.Sprintf("search returned HTTP %d", resp.StatusCode), nil)
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	decoder.UseNumber()

	var payload searchResponse
	if err := decoder.Decode(&payload); err != nil {
		logger.Error("Failed to decode search response", zap.Error(err))
		return nil, model.SourceUnavailable("undecodable search response", err)
	}

	if len(payload.Products) == 0 {
		logger.Warn("No products returned", zap.Duration("duration", time.Since(start)))
		return []model.RawRecord{}, nil
	}

	logger.Info("Extraction complete",
		zap.Int("products", len(payload.Products)),
		zap.Duration("duration", time.Since(start)))

	return payload.Products, nil
}

func (e *Extractor) searchURL(category string, pageSize int) (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid source URL %q: %w", e.baseURL, err)
	}

	q := u.Query()
	q.Set("action", "process")
	q.Set("tagtype_0", "categories")
	q.Set("tag_0", category)
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("json", "1")
	q.Set("fields", strings.Join(model.SourceFields, ","))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
