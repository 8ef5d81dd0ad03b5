// Package validate contains sentinel errors shared by the package
// constructors so tests can assert on exact failure causes.
package validate

import "github.com/pkg/errors"

var (
	ErrMissingArgs          = errors.New("args cannot be nil")
	ErrMissingAddress       = errors.New("address cannot be empty")
	ErrMissingStream        = errors.New("stream cannot be empty")
	ErrMissingConsumerGroup = errors.New("consumer group cannot be empty")
	ErrMissingConsumerName  = errors.New("consumer name cannot be empty")
	ErrMissingQueue         = errors.New("queue name cannot be empty")
	ErrMissingHandler       = errors.New("handler cannot be nil")
	ErrMissingEmbedder      = errors.New("embedder cannot be nil")
	ErrMissingIndex         = errors.New("index cannot be nil")
	ErrMissingPolicy        = errors.New("policy cannot be nil")
	ErrMissingConsumer      = errors.New("consumer cannot be nil")
	ErrMissingBaseURL       = errors.New("base URL cannot be empty")
	ErrInvalidDimension     = errors.New("embedding dimension must be > 0")
)
