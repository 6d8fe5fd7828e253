package gdocai

import (
	"context"
	"errors"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// MimeTypeJPEG is the content type of tally-sheet images
const MimeTypeJPEG = "image/jpeg"

// Config identifies the Document AI processor
type Config struct {
	ProjectID       string
	Location        string // e.g. "eu" or "us"
	ProcessorID     string
	CredentialsFile string // Empty uses application default credentials
}

// ProcessorName returns the resource name of the configured processor
func (c Config) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// Validate reports missing processor settings
func (c Config) Validate() error {
	var errs []error
	if c.ProjectID == "" {
		errs = append(errs, errors.New("project_id is required"))
	}
	if c.Location == "" {
		errs = append(errs, errors.New("location is required"))
	}
	if c.ProcessorID == "" {
		errs = append(errs, errors.New("processor_id is required"))
	}
	return errors.Join(errs...)
}

// processor is the part of the Document AI client the package uses
type processor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)
	Close() error
}

type sdkProcessor struct {
	client *documentai.DocumentProcessorClient
}

func (p sdkProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
	return p.client.ProcessDocument(ctx, req)
}

func (p sdkProcessor) Close() error {
	return p.client.Close()
}

// Client sends documents to one Document AI processor. It is safe for
// concurrent use and should be created once per run.
type Client struct {
	api processor
	cfg Config
}

// NewClient connects to the regional Document AI endpoint
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Document AI config: %w", err)
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &Client{api: sdkProcessor{client: client}, cfg: cfg}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.api.Close()
}

// ProcessImage sends raw bytes to the processor and returns the Document proto
func (c *Client) ProcessImage(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error) {
	if len(content) == 0 {
		return nil, errors.New("no content to process")
	}

	req := &documentaipb.ProcessRequest{
		Name: c.cfg.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	}

	resp, err := c.api.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	if resp.GetDocument() == nil {
		return nil, errors.New("Document AI returned no document")
	}
	return resp.GetDocument(), nil
}
