// Package embedder is the client for the external embedding service. The
// service wraps a BGE-M3 model and returns fixed-dimensionality, L2-normalized
// dense vectors for arbitrary text.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/validate"
)

const DefaultTimeout = 30 * time.Second

type Args struct {
	// BaseURL of the embedding service, e.g. http://localhost:8100
	BaseURL string

	// Dimension of the returned vectors
	Dimension int

	Timeout time.Duration
}

type Client struct {
	args       *Args
	httpClient *http.Client
	log        *logrus.Entry
}

type embedRequest struct {
	Text      string `json:"text"`
	Dimension int    `json:"dim"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func New(args *Args) (*Client, error) {
	if err := validateArgs(args); err != nil {
		return nil, errors.Wrap(err, "unable to validate embedder args")
	}

	if args.Timeout <= 0 {
		args.Timeout = DefaultTimeout
	}

	return &Client{
		args: args,
		httpClient: &http.Client{
			Timeout: args.Timeout,
		},
		log: logrus.WithField("pkg", "embedder"),
	}, nil
}

// Dimension returns the configured output dimensionality
func (c *Client) Dimension() int {
	return c.args.Dimension
}

// Embed generates one dense vector for the given text
func (c *Client) Embed(ctx context.Context, text string, dim int) ([]float32, error) {
	if dim <= 0 {
		dim = c.args.Dimension
	}

	body, err := json.Marshal(&embedRequest{Text: text, Dimension: dim})
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal embed request")
	}

	url := strings.TrimSuffix(c.args.BaseURL, "/") + "/embed"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create embed request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to perform embed request")
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("embedding service returned '%s': %s", resp.Status, string(raw))
	}

	decoded := &embedResponse{}

	if err := json.NewDecoder(resp.Body).Decode(decoded); err != nil {
		return nil, errors.Wrap(err, "unable to decode embed response")
	}

	if len(decoded.Embedding) != dim {
		return nil, errors.Errorf("embedding service returned %d dims, expected %d",
			len(decoded.Embedding), dim)
	}

	return decoded.Embedding, nil
}

func validateArgs(args *Args) error {
	if args == nil {
		return validate.ErrMissingArgs
	}

	if args.BaseURL == "" {
		return validate.ErrMissingBaseURL
	}

	if args.Dimension <= 0 {
		return validate.ErrInvalidDimension
	}

	return nil
}
