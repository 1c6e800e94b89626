package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"photomotion/internal/infra"
	"photomotion/internal/infra/credentials"
	"photomotion/internal/providers/veo"
)

// AspectRatio is the requested video orientation.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// ParseAspectRatio validates a client-supplied ratio, defaulting to landscape.
func ParseAspectRatio(raw string) (AspectRatio, error) {
	switch strings.TrimSpace(raw) {
	case "", string(AspectLandscape):
		return AspectLandscape, nil
	case string(AspectPortrait):
		return AspectPortrait, nil
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", raw)
}

// Client is the remote surface the pipeline drives. *veo.Client satisfies it.
type Client interface {
	Submit(ctx context.Context, req veo.SubmitRequest) (*veo.Operation, error)
	Poll(ctx context.Context, name string) (*veo.Operation, error)
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

// Request is one immutable generation request.
type Request struct {
	ImageBytes  []byte
	ImageMIME   string
	Prompt      string
	AspectRatio AspectRatio
}

// Result holds the downloaded video for the lifetime of the session.
type Result struct {
	Video []byte
	MIME  string
}

// Reporter receives the pipeline step about to start.
type Reporter func(step Step)

// Options configures a Pipeline.
type Options struct {
	Client       Client
	Gate         *credentials.Gate
	Logger       infra.Logger
	PollInterval time.Duration
	// MaxAttempts caps the poll loop; zero polls until the remote operation
	// completes, trusting its lifecycle.
	MaxAttempts int
}

// Pipeline runs the encode → submit → poll → download sequence. A pipeline is
// stateless between runs; per-run state lives in the owning session.
type Pipeline struct {
	client       Client
	gate         *credentials.Gate
	logger       infra.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// NewPipeline wires a pipeline against the given client and key gate.
func NewPipeline(opts Options) *Pipeline {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &Pipeline{
		client:       opts.Client,
		gate:         opts.Gate,
		logger:       opts.Logger,
		pollInterval: interval,
		maxAttempts:  maxAttempts,
	}
}

// Run executes one generation to completion. It reports each step before
// starting it and returns either a playable result or a classified error.
// Nothing is retried; a key failure additionally revokes the gate so the UI
// can route back to key selection.
func (p *Pipeline) Run(ctx context.Context, req Request, report Reporter) (*Result, error) {
	if report == nil {
		report = func(Step) {}
	}

	report(StepEncoding)
	encoded, mimeType, err := encodeImage(req.ImageBytes, req.ImageMIME)
	if err != nil {
		return nil, p.fail(err)
	}

	report(StepSubmitting)
	op, err := p.client.Submit(ctx, veo.SubmitRequest{
		Prompt:      req.Prompt,
		ImageData:   encoded,
		MimeType:    mimeType,
		AspectRatio: string(req.AspectRatio),
	})
	if err != nil {
		return nil, p.fail(err)
	}
	p.logger.Info().Str("operation", op.Name).Msg("generation submitted")

	report(StepWaiting)
	attempts := 0
	for !op.Done {
		attempts++
		if p.maxAttempts > 0 && attempts > p.maxAttempts {
			return nil, p.fail(newError(KindUnclassified,
				fmt.Sprintf("video generation did not finish after %d status checks", p.maxAttempts), nil))
		}
		if err := sleep(ctx, p.pollInterval); err != nil {
			return nil, p.fail(err)
		}
		op, err = p.client.Poll(ctx, op.Name)
		if err != nil {
			return nil, p.fail(err)
		}
	}

	if op.Error != nil {
		msg := op.Error.Message
		if msg == "" {
			msg = "the video service reported a generation failure"
		}
		return nil, p.fail(newError(KindGeneration, "Video generation failed: "+msg, nil))
	}

	uri := op.VideoURI()
	if uri == "" {
		return nil, p.fail(newError(KindMissingResult,
			"The generated video could not be retrieved from the completed operation.", nil))
	}

	report(StepDownloading)
	data, contentType, err := p.client.Download(ctx, uri)
	if err != nil {
		return nil, p.fail(err)
	}
	p.logger.Info().Int("bytes", len(data)).Msg("generation downloaded")

	return &Result{Video: data, MIME: contentType}, nil
}

func (p *Pipeline) fail(err error) error {
	ge := classify(err)
	if ge.Kind == KindAPIKey && p.gate != nil {
		p.gate.Invalidate()
	}
	p.logger.Warn().Str("kind", ge.Kind.String()).Msg(ge.Message)
	return ge
}

// encodeImage converts the raw upload into the base64 payload the API expects,
// sniffing the MIME type when the client did not provide one.
func encodeImage(data []byte, mimeType string) (string, string, error) {
	if len(data) == 0 {
		return "", "", newError(KindEncoding, "The image payload is empty.", nil)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", "", newError(KindEncoding, fmt.Sprintf("Unsupported image type %q.", mimeType), nil)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if encoded == "" {
		return "", "", newError(KindEncoding, "The image payload is empty.", nil)
	}
	return encoded, mimeType, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
