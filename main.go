package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/trototvn/sync-service/backends/rqueue"
	"github.com/trototvn/sync-service/backends/rstreams"
	"github.com/trototvn/sync-service/embedder"
	"github.com/trototvn/sync-service/milvus"
	"github.com/trototvn/sync-service/options"
	"github.com/trototvn/sync-service/prometheus"
	"github.com/trototvn/sync-service/sync"
)

func main() {
	_, opts, err := options.New(os.Args[1:])
	if err != nil {
		logrus.Fatalf("Unable to handle CLI input: %s", err)
	}

	if opts.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if opts.Quiet {
		logrus.SetLevel(logrus.ErrorLevel)
	}

	// JSON formatter for log output if not running in a TTY
	if !terminal.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prometheus.InitPrometheusMetrics()
	prometheus.Start(opts.Metrics.ReportInterval)

	if !opts.Metrics.Disable {
		prometheus.RunServer(opts.Metrics.ListenAddress)
	}

	// Collaborator reachability at startup is the only fatal failure class;
	// anything after this point rides out errors and retries.
	index, err := milvus.New(ctx, &milvus.Args{
		Address:   opts.Milvus.Address,
		Dimension: opts.Embedder.Dimension,
	})
	if err != nil {
		logrus.Fatalf("Unable to connect to milvus: %s", err)
	}

	if err := index.Initialize(ctx); err != nil {
		logrus.Fatalf("Unable to initialize milvus collections: %s", err)
	}

	embedClient, err := embedder.New(&embedder.Args{
		BaseURL:   opts.Embedder.URL,
		Dimension: opts.Embedder.Dimension,
		Timeout:   opts.Embedder.Timeout,
	})
	if err != nil {
		logrus.Fatalf("Unable to create embedder client: %s", err)
	}

	var workers []sync.Worker

	switch opts.Mode {
	case options.ModeCDC:
		workers, err = buildCDCWorkers(ctx, opts, embedClient, index)
	case options.ModeQueue:
		workers, err = buildQueueWorkers(ctx, opts, embedClient, index)
	default:
		logrus.Fatalf("Unrecognized mode: %s", opts.Mode)
	}

	if err != nil {
		logrus.Fatalf("Unable to build workers: %s", err)
	}

	supervisor, err := sync.NewSupervisor(workers...)
	if err != nil {
		logrus.Fatalf("Unable to create supervisor: %s", err)
	}

	logrus.Infof("starting sync-service in '%s' mode", opts.Mode)

	if err := supervisor.Run(ctx); err != nil {
		logrus.Fatalf("Unable to complete run: %s", err)
	}

	logrus.Info("shutdown complete")
}

func buildCDCWorkers(ctx context.Context, opts *options.Options, embedClient *embedder.Client, index *milvus.Milvus) ([]sync.Worker, error) {
	policy, err := sync.PolicyFromName(opts.Listing.Policy)
	if err != nil {
		return nil, err
	}

	listingConsumer, err := newConsumer(ctx, opts, opts.Listing.Stream, "post-worker")
	if err != nil {
		return nil, err
	}

	userConsumer, err := newConsumer(ctx, opts, opts.User.Stream, "user-worker")
	if err != nil {
		return nil, err
	}

	listingWorker, err := sync.NewListingWorker(&sync.ListingWorkerConfig{
		Consumer:  listingConsumer,
		Embedder:  embedClient,
		Index:     index,
		Policy:    policy,
		Dimension: opts.Embedder.Dimension,
	})
	if err != nil {
		return nil, err
	}

	userWorker, err := sync.NewUserWorker(&sync.UserWorkerConfig{
		Consumer:  userConsumer,
		Embedder:  embedClient,
		Index:     index,
		Dimension: opts.Embedder.Dimension,
	})
	if err != nil {
		return nil, err
	}

	return []sync.Worker{listingWorker, userWorker}, nil
}

func buildQueueWorkers(ctx context.Context, opts *options.Options, embedClient *embedder.Client, index *milvus.Milvus) ([]sync.Worker, error) {
	queue, err := rqueue.New(&rqueue.Args{
		Address:  opts.Redis.Address,
		Username: opts.Redis.Username,
		Password: opts.Redis.Password,
		Database: opts.Redis.Database,
	})
	if err != nil {
		return nil, err
	}

	if err := queue.Test(ctx); err != nil {
		return nil, err
	}

	// Queue mode trusts the producer to have decided relevance - the workers
	// are built without consumers or a status policy
	listingWorker, err := sync.NewListingWorker(&sync.ListingWorkerConfig{
		Embedder:  embedClient,
		Index:     index,
		Policy:    sync.IndexAllPolicy,
		Dimension: opts.Embedder.Dimension,
	})
	if err != nil {
		return nil, err
	}

	userWorker, err := sync.NewUserWorker(&sync.UserWorkerConfig{
		Embedder:  embedClient,
		Index:     index,
		Dimension: opts.Embedder.Dimension,
	})
	if err != nil {
		return nil, err
	}

	listingQueueWorker, err := sync.NewQueueWorker(&sync.QueueWorkerConfig{
		Queue:      queue,
		QueueName:  opts.Listing.Queue,
		Handler:    listingWorker.HandleJob,
		PopTimeout: opts.BlockTimeout,
	})
	if err != nil {
		return nil, err
	}

	userQueueWorker, err := sync.NewQueueWorker(&sync.QueueWorkerConfig{
		Queue:      queue,
		QueueName:  opts.User.Queue,
		Handler:    userWorker.HandleJob,
		PopTimeout: opts.BlockTimeout,
	})
	if err != nil {
		return nil, err
	}

	return []sync.Worker{listingQueueWorker, userQueueWorker}, nil
}

func newConsumer(ctx context.Context, opts *options.Options, stream, namePrefix string) (*rstreams.RedisStreams, error) {
	consumer, err := rstreams.New(&rstreams.Args{
		Address:       opts.Redis.Address,
		Username:      opts.Redis.Username,
		Password:      opts.Redis.Password,
		Database:      opts.Redis.Database,
		Stream:        stream,
		ConsumerGroup: opts.ConsumerGroup,
		ConsumerName:  rstreams.DefaultConsumerName(namePrefix),
		BatchSize:     opts.BatchSize,
		BlockTimeout:  opts.BlockTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Test(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}
