package textract

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// Config holds the settings of the AWS Textract client
type Config struct {
	Region   string // AWS region, e.g. "eu-central-1"
	S3Bucket string // When set, documents are referenced by S3 object instead of sent inline
}

// Document identifies the image to analyze. Bytes is used unless the client
// is configured with an S3 bucket and Key is set.
type Document struct {
	Bytes []byte
	Key   string // Object key inside Config.S3Bucket
}

// analyzer is the subset of the Textract API used by Client
type analyzer interface {
	AnalyzeDocument(ctx context.Context, params *awstextract.AnalyzeDocumentInput, optFns ...func(*awstextract.Options)) (*awstextract.AnalyzeDocumentOutput, error)
}

// Client requests table analysis from AWS Textract
type Client struct {
	api analyzer
	cfg Config
}

// NewClient creates a Textract client using the default AWS credential chain
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &Client{api: awstextract.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// AnalyzeTables runs Textract in table-extraction mode and returns the flat
// block graph
func (c *Client) AnalyzeTables(ctx context.Context, doc Document) (*Response, error) {
	input := &awstextract.AnalyzeDocumentInput{
		FeatureTypes: []types.FeatureType{types.FeatureTypeTables},
	}
	if c.cfg.S3Bucket != "" && doc.Key != "" {
		input.Document = &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(c.cfg.S3Bucket),
				Name:   aws.String(doc.Key),
			},
		}
	} else {
		if len(doc.Bytes) == 0 {
			return nil, fmt.Errorf("no document bytes provided")
		}
		input.Document = &types.Document{Bytes: doc.Bytes}
	}

	out, err := c.api.AnalyzeDocument(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze document: %w", err)
	}
	return ResponseFromSDK(out.Blocks), nil
}

// ResponseFromSDK converts SDK blocks into the persisted response form
func ResponseFromSDK(blocks []types.Block) *Response {
	resp := &Response{Blocks: make([]Block, 0, len(blocks))}
	for _, b := range blocks {
		block := Block{
			ID:              aws.ToString(b.Id),
			BlockType:       BlockType(b.BlockType),
			Text:            aws.ToString(b.Text),
			SelectionStatus: SelectionStatus(b.SelectionStatus),
		}
		if b.RowIndex != nil {
			block.RowIndex = int(*b.RowIndex)
		}
		if b.ColumnIndex != nil {
			block.ColumnIndex = int(*b.ColumnIndex)
		}
		for _, rel := range b.Relationships {
			block.Relationships = append(block.Relationships, Relationship{
				Type: string(rel.Type),
				IDs:  append([]string(nil), rel.Ids...),
			})
		}
		resp.Blocks = append(resp.Blocks, block)
	}
	return resp
}
