package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photomotion/internal/infra"
)

// ErrInvalidAPIKey marks remote failures that mean the key is invalid or
// unauthorized, even when the service phrases them differently.
var ErrInvalidAPIKey = errors.New("veo: api key invalid or unauthorized")

// DownloadError is returned when fetching the generated video fails with a
// non-success status that is not a key problem.
type DownloadError struct {
	StatusText string
}

func (e *DownloadError) Error() string {
	return "veo: video download failed: " + e.StatusText
}

// Options controls how the Veo client is configured.
type Options struct {
	APIKey     string
	APIKeyFunc func() string
	BaseURL    string
	Model      string
	Resolution string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin REST client for the Veo long-running generation API. It
// owns the boundary error classification: callers never inspect remote
// message text themselves.
type Client struct {
	keyFunc    func() string
	baseURL    string
	model      string
	resolution string
	httpClient *http.Client
	logger     infra.Logger
}

// NewClient constructs a Veo client with sane defaults. Callers may provide a
// nil HTTP client; a reusable one with a generous timeout will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "veo-2.0-generate-001"
	}

	resolution := opts.Resolution
	if resolution == "" {
		resolution = "720p"
	}

	keyFunc := opts.APIKeyFunc
	if keyFunc == nil {
		static := strings.TrimSpace(opts.APIKey)
		keyFunc = func() string { return static }
	}

	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = zerolog.New(io.Discard)
	}

	return &Client{
		keyFunc:    keyFunc,
		baseURL:    baseURL,
		model:      model,
		resolution: resolution,
		httpClient: client,
		logger:     logger,
	}
}

// Model returns the configured Veo model identifier.
func (c *Client) Model() string {
	return c.model
}

// SubmitRequest carries one image-to-video generation request.
type SubmitRequest struct {
	Prompt      string
	ImageData   string // base64-encoded image payload
	MimeType    string
	AspectRatio string
}

// Operation mirrors the long-running operation resource returned by the API.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

// OperationError is the terminal error payload of a failed operation.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type operationResponse struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples,omitempty"`
}

type generatedSample struct {
	Video *videoRef `json:"video,omitempty"`
}

type videoRef struct {
	URI string `json:"uri,omitempty"`
}

// VideoURI returns the download URI of the first generated sample, or the
// empty string when the completed operation carries no result.
func (o *Operation) VideoURI() string {
	if o == nil || o.Response == nil || o.Response.GenerateVideoResponse == nil {
		return ""
	}
	for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
		if sample.Video != nil && sample.Video.URI != "" {
			return sample.Video.URI
		}
	}
	return ""
}

type submitInstance struct {
	Prompt string       `json:"prompt"`
	Image  *inlineImage `json:"image,omitempty"`
}

type inlineImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type submitParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	SampleCount int    `json:"sampleCount"`
	Resolution  string `json:"resolution,omitempty"`
}

type submitPayload struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// Submit starts a long-running generation for exactly one video and returns
// the initial operation handle.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Operation, error) {
	payload := submitPayload{
		Instances: []submitInstance{{
			Prompt: req.Prompt,
			Image: &inlineImage{
				BytesBase64Encoded: req.ImageData,
				MimeType:           req.MimeType,
			},
		}},
		Parameters: submitParameters{
			AspectRatio: req.AspectRatio,
			SampleCount: 1,
			Resolution:  c.resolution,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("veo: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("veo: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.keyFunc())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("veo: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("veo: submit: %s", remoteMessage(resp))
	}

	var op Operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("veo: decode submit response: %w", err)
	}
	if op.Name == "" {
		return nil, errors.New("veo: submit returned no operation name")
	}
	c.logger.Debug().Str("operation", op.Name).Msg("veo: generation submitted")
	return &op, nil
}

// Poll re-queries an operation by name. A "Requested entity was not found"
// failure is reinterpreted as ErrInvalidAPIKey: the service answers that way
// when a key that looked valid has been revoked.
func (c *Client) Poll(ctx context.Context, name string) (*Operation, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(name, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("veo: build poll request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.keyFunc())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("veo: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classifyPollFailure(remoteMessage(resp))
	}

	var op Operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("veo: decode poll response: %w", err)
	}
	if op.Name == "" {
		op.Name = name
	}
	return &op, nil
}

// Download fetches the generated video bytes from the result URI with the
// credential appended as a query parameter. It returns the bytes and the
// content type reported by the server.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.keyFunc(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("veo: build download request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("veo: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, "", classifyDownloadFailure(resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("veo: read video body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return data, contentType, nil
}

func remoteMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return resp.Status
}

const notFoundIndicator = "Requested entity was not found"

var invalidKeyIndicators = []string{
	"api key not valid",
	"api_key_invalid",
	"invalid api key",
}

func classifyPollFailure(message string) error {
	if strings.Contains(message, notFoundIndicator) {
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, message)
	}
	return fmt.Errorf("veo: poll: %s", message)
}

func classifyDownloadFailure(status, body string) error {
	lowered := strings.ToLower(body)
	for _, indicator := range invalidKeyIndicators {
		if strings.Contains(lowered, indicator) {
			return fmt.Errorf("%w: %s", ErrInvalidAPIKey, strings.TrimSpace(body))
		}
	}
	return &DownloadError{StatusText: status}
}
