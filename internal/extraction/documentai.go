package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"grn-sheet-sync-go/internal/models"
)

// lineItemType is the entity type that the invoice and custom extractor
// processors use for table rows.
const lineItemType = "line_item"

// DocumentAIExtractor implements Extractor with a Document AI processor.
// Top-level entities become document fields and line_item entities become
// items whose fields are the entity properties.
type DocumentAIExtractor struct {
	client    *documentai.DocumentProcessorClient
	processor string
}

// NewDocumentAIExtractor connects to the regional endpoint and checks that
// the processor exists.
func NewDocumentAIExtractor(ctx context.Context, project, location, processorID string, opts ...option.ClientOption) (*DocumentAIExtractor, error) {
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)

	client, err := documentai.NewDocumentProcessorClient(ctx, docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	proc, err := client.GetProcessor(ctx, &documentaipb.GetProcessorRequest{Name: name})
	if err != nil {
		_ = client.Close()
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
		}
		return nil, fmt.Errorf("documentai GetProcessor: %w", err)
	}

	logrus.Infof("Document AI processor %s (%s) ready", proc.GetDisplayName(), proc.GetType())
	return &DocumentAIExtractor{client: client, processor: name}, nil
}

func (d *DocumentAIExtractor) Close() error { return d.client.Close() }

func (d *DocumentAIExtractor) Extract(ctx context.Context, localPath string) (*models.ExtractionResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}

	doc := resp.GetDocument()
	return &models.ExtractionResult{
		Data: EntitiesToData(doc.GetEntities()),
		Metadata: map[string]any{
			"processor": d.processor,
			"pages":     len(doc.GetPages()),
		},
	}, nil
}

// EntitiesToData maps Document AI entities onto the document shape used by
// the normalizer: scalar fields plus an "items" list.
func EntitiesToData(entities []*documentaipb.Document_Entity) map[string]any {
	data := make(map[string]any)
	items := make([]any, 0)

	for _, e := range entities {
		if e.GetType() == lineItemType {
			item := make(map[string]any)
			for _, p := range e.GetProperties() {
				key := p.GetType()
				if i := strings.LastIndex(key, "/"); i >= 0 {
					key = key[i+1:]
				}
				if v := entityText(p); v != "" {
					item[key] = v
				}
			}
			items = append(items, item)
			continue
		}

		// keep the first mention of each type
		if _, ok := data[e.GetType()]; ok {
			continue
		}
		if v := entityText(e); v != "" {
			data[e.GetType()] = v
		}
	}

	data["items"] = items
	return data
}

func entityText(e *documentaipb.Document_Entity) string {
	if nv := e.GetNormalizedValue(); nv != nil && nv.GetText() != "" {
		return strings.TrimSpace(nv.GetText())
	}
	return strings.TrimSpace(e.GetMentionText())
}
