package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/genetrans/genetrans/pkg/convert"

	es8 "github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "genetrans_conversions"

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Client struct {
	es    *es8.Client
	index string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("elasticsearch URL is required")
	}
	index := cfg.Index
	if strings.TrimSpace(index) == "" {
		index = DefaultIndex
	}

	es, err := es8.NewClient(es8.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %s", res.Status())
	}

	return &Client{es: es, index: index}, nil
}

func (c *Client) Index() string {
	return c.index
}

// conversionDoc is the indexed form of a conversion run. Durations are
// stored in milliseconds so they aggregate as numbers.
type conversionDoc struct {
	ID         string `json:"id"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartTime  string `json:"@timestamp"`
	EndTime    string `json:"end_time"`
	DurationMS int64  `json:"duration_ms"`
}

// IndexConversion stores r as a document keyed by the run ID.
func (c *Client) IndexConversion(ctx context.Context, r *convert.Result) error {
	if r == nil {
		return nil
	}

	doc := conversionDoc{
		ID:         r.ID,
		InputPath:  r.InputPath,
		OutputPath: r.OutputPath,
		Status:     string(r.Status),
		Error:      r.Error,
		StartTime:  r.StartTime.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		EndTime:    r.EndTime.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		DurationMS: r.Duration.Milliseconds(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal conversion: %w", err)
	}

	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index conversion: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 500))
		return fmt.Errorf("failed to index conversion: %s: %s", res.Status(), strings.TrimSpace(string(msg)))
	}
	return nil
}
