package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	opensearchsdk "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/signer"
	awssigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"

	"github.com/schedario/schedario/pkg/docstore"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// OpenSearch rejects "_id" inside the document body, so the id is shadowed in
// a regular field. The keyword subfield of the shadow is the sort tiebreaker
// for anchored pagination. Both are stripped from documents handed to callers.
const (
	shadowIDField = "_doc_id"
	shadowIDSort  = "_doc_id.keyword"

	// searchPageSize bounds each request while draining an unlimited query.
	searchPageSize = 1000
)

var errIndexNotFound = errors.New("index not found")

// ErrDocumentMissing reports an update against a document that does not exist.
var ErrDocumentMissing = errors.New("document not found")

// OpenSearchAdapter provides OpenSearch connectivity through the official Go
// client and implements the document store capability interfaces. Each
// collection maps to an index; documents live in "_source" with the id kept
// as request metadata.
type OpenSearchAdapter struct {
	client    *opensearchsdk.Client
	logger    logger.Logger
	transport *http.Transport
	config    Config

	// fieldNames caches _field_caps resolutions per "index/field".
	fieldNames sync.Map
}

// Config holds OpenSearch adapter configuration.
type Config struct {
	URL              string
	URLs             []string
	Username         string
	Password         string
	APIKey           string
	AWSAuthEnabled   bool
	AWSRegion        string
	AWSService       string
	AWSAccessKeyID   string
	AWSSecretKey     string
	AWSSessionToken  string
	MaxConns         int
	OperationTimeout time.Duration
}

// NewOpenSearchAdapter creates an OpenSearch adapter backed by the official
// SDK and verifies connectivity.
func NewOpenSearchAdapter(cfg Config, log logger.Logger) (*OpenSearchAdapter, error) {
	addresses, err := collectAddresses(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxConns,
		MaxIdleConnsPerHost: cfg.MaxConns,
		MaxConnsPerHost:     cfg.MaxConns,
		IdleConnTimeout:     90 * time.Second,
	}

	clientCfg := opensearchsdk.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		clientCfg.Header = http.Header{"Authorization": []string{"ApiKey " + strings.TrimSpace(cfg.APIKey)}}
	}
	if cfg.AWSAuthEnabled {
		sgn, err := newAWSSigner(cfg)
		if err != nil {
			return nil, err
		}
		clientCfg.Signer = sgn
	}

	client, err := opensearchsdk.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	adapter := &OpenSearchAdapter{
		client:    client,
		logger:    log,
		transport: transport,
		config:    cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
	defer cancel()
	if err := adapter.Ping(ctx); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}

	log.Info("Search connection established",
		"nodes", len(addresses),
		"aws_auth_enabled", cfg.AWSAuthEnabled,
		"max_conns", cfg.MaxConns,
		"operation_timeout", cfg.OperationTimeout,
	)
	return adapter, nil
}

// Client returns the underlying SDK client.
func (a *OpenSearchAdapter) Client() *opensearchsdk.Client {
	return a.client
}

// Database returns the capability-interface view of this adapter.
func (a *OpenSearchAdapter) Database() docstore.Database {
	return &database{adapter: a}
}

// Ping verifies the OpenSearch connection is alive.
func (a *OpenSearchAdapter) Ping(ctx context.Context) error {
	resp, err := a.perform(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("search ping failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// HealthCheck verifies the OpenSearch cluster is healthy.
func (a *OpenSearchAdapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := a.perform(hcCtx, http.MethodGet, "/_cluster/health?local=true", nil)
	if err != nil {
		a.logger.Error("Search health check failed", "error", err)
		return fmt.Errorf("search health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("search health check failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		a.logger.Error("Search health check failed", "error", err)
		return err
	}
	return nil
}

// Close gracefully closes idle HTTP connections.
func (a *OpenSearchAdapter) Close() error {
	a.logger.Info("closing Search connections")
	if a.transport != nil {
		a.transport.CloseIdleConnections()
	}
	return nil
}

// IndexDocument upserts a JSON document in the target index by ID. The write
// refreshes the index so it is immediately visible to searches.
func (a *OpenSearchAdapter) IndexDocument(ctx context.Context, index, id string, document any) error {
	if strings.TrimSpace(index) == "" {
		return fmt.Errorf("index is required")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}

	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	path := fmt.Sprintf("/%s/_doc/%s?refresh=true", url.PathEscape(index), url.PathEscape(id))
	resp, err := a.perform(opCtx, http.MethodPut, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to index document: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// GetDocument fetches a document source by ID. A missing document or index
// reports found == false, not an error.
func (a *OpenSearchAdapter) GetDocument(ctx context.Context, index, id string) (map[string]any, bool, error) {
	if strings.TrimSpace(index) == "" {
		return nil, false, fmt.Errorf("index is required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, false, fmt.Errorf("document id is required")
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	path := fmt.Sprintf("/%s/_doc/%s", url.PathEscape(index), url.PathEscape(id))
	resp, err := a.perform(opCtx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read get response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("failed to get document: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, false, fmt.Errorf("failed to decode get response: %w", err)
	}
	if !out.Found {
		return nil, false, nil
	}
	return out.Source, true, nil
}

// UpdateDocument merges fields into an existing document. It returns
// ErrDocumentMissing when the document does not exist.
func (a *OpenSearchAdapter) UpdateDocument(ctx context.Context, index, id string, fields map[string]any) error {
	if strings.TrimSpace(index) == "" {
		return fmt.Errorf("index is required")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}

	payload, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	path := fmt.Sprintf("/%s/_update/%s?refresh=true", url.PathEscape(index), url.PathEscape(id))
	resp, err := a.perform(opCtx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrDocumentMissing
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to update document: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// DeleteDocument deletes a document by ID. Deleting a missing document is not
// an error.
func (a *OpenSearchAdapter) DeleteDocument(ctx context.Context, index, id string) error {
	if strings.TrimSpace(index) == "" {
		return fmt.Errorf("index is required")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	path := fmt.Sprintf("/%s/_doc/%s?refresh=true", url.PathEscape(index), url.PathEscape(id))
	resp, err := a.perform(opCtx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete document: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Search executes a JSON query and returns the raw JSON response. A missing
// index surfaces as errIndexNotFound so callers can treat it as empty.
func (a *OpenSearchAdapter) Search(ctx context.Context, index string, query any) (json.RawMessage, error) {
	if strings.TrimSpace(index) == "" {
		return nil, fmt.Errorf("index is required")
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	path := fmt.Sprintf("/%s/_search", url.PathEscape(index))
	resp, err := a.perform(opCtx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound && strings.Contains(string(body), "index_not_found_exception") {
		return nil, errIndexNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.RawMessage(body), nil
}

func (a *OpenSearchAdapter) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.config.OperationTimeout)
}

func (a *OpenSearchAdapter) perform(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Perform(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return resp, nil
}

// resolveFieldName maps a document field to the name searches and sorts must
// target. Text-mapped fields resolve to their keyword subfield; everything
// else passes through. Resolutions are cached per index.
func (a *OpenSearchAdapter) resolveFieldName(ctx context.Context, index, field string) (string, error) {
	cacheKey := index + "/" + field
	if cached, ok := a.fieldNames.Load(cacheKey); ok {
		return cached.(string), nil
	}

	fields := url.QueryEscape(field + "," + field + ".keyword")
	path := fmt.Sprintf("/%s/_field_caps?fields=%s", url.PathEscape(index), fields)
	resp, err := a.perform(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read field caps response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		// Index not created yet; nothing to resolve against.
		return field, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("field caps request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var caps fieldCapsResponse
	if err := json.Unmarshal(body, &caps); err != nil {
		return "", fmt.Errorf("failed to decode field caps response: %w", err)
	}

	resolved := chooseFieldName(caps.Fields, field)
	if _, mapped := caps.Fields[field]; mapped {
		// Unmapped fields may gain a mapping on a later write; only cache
		// settled resolutions.
		a.fieldNames.Store(cacheKey, resolved)
	}
	return resolved, nil
}

type fieldCapsResponse struct {
	Fields map[string]map[string]fieldCap `json:"fields"`
}

type fieldCap struct {
	Type string `json:"type"`
}

func chooseFieldName(fields map[string]map[string]fieldCap, field string) string {
	caps, ok := fields[field]
	if !ok {
		return field
	}
	if _, isText := caps["text"]; !isText {
		return field
	}
	sub, ok := fields[field+".keyword"]
	if !ok {
		return field
	}
	if _, isKeyword := sub["keyword"]; isKeyword {
		return field + ".keyword"
	}
	return field
}

func newAWSSigner(cfg Config) (signer.Signer, error) {
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		return nil, fmt.Errorf("aws region is required when AWS auth is enabled")
	}
	if strings.TrimSpace(cfg.AWSService) == "" {
		cfg.AWSService = "es"
	}

	var awsCfg aws.Config
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" || strings.TrimSpace(cfg.AWSSecretKey) != "" {
		if strings.TrimSpace(cfg.AWSAccessKeyID) == "" || strings.TrimSpace(cfg.AWSSecretKey) == "" {
			return nil, fmt.Errorf("both AWS access key id and secret access key are required when using static AWS credentials")
		}
		awsCfg = aws.Config{
			Region:      cfg.AWSRegion,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, cfg.AWSSessionToken),
		}
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = loaded
	}

	return awssigner.NewSignerWithService(awsCfg, cfg.AWSService)
}

func parseBaseURLs(cfg Config) ([]url.URL, error) {
	raw := make([]string, 0, len(cfg.URLs)+1)
	if strings.TrimSpace(cfg.URL) != "" {
		raw = append(raw, cfg.URL)
	}
	for _, u := range cfg.URLs {
		if strings.TrimSpace(u) != "" {
			raw = append(raw, u)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("opensearch URL is required (or configure URLs)")
	}

	parsed := make([]url.URL, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		u, err := url.Parse(strings.TrimSpace(item))
		if err != nil {
			return nil, fmt.Errorf("failed to parse search URL %q: %w", item, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid search URL: %s", item)
		}
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parsed = append(parsed, *u)
	}
	return parsed, nil
}

func collectAddresses(cfg Config) ([]string, error) {
	parsed, err := parseBaseURLs(cfg)
	if err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(parsed))
	for _, u := range parsed {
		addresses = append(addresses, u.String())
	}
	return addresses, nil
}

var _ docstore.Client = (*OpenSearchAdapter)(nil)
