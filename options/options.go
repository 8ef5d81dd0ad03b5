// Package options holds the full configuration surface for the sync service.
// Every flag has an env fallback so the daemon can be configured entirely
// from the environment in container deployments.
package options

import (
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
)

var VERSION = "UNSET"

// Ingestion modes
const (
	ModeCDC   = "cdc"
	ModeQueue = "queue"
)

type Options struct {
	Debug bool `help:"Enable debug output." env:"SYNC_DEBUG"`
	Quiet bool `help:"Only log errors." env:"SYNC_QUIET"`

	Mode string `help:"Ingestion mode: consume CDC streams or backfill queues." enum:"cdc,queue" default:"cdc" env:"SYNC_MODE"`

	ConsumerGroup string        `help:"Consumer group shared by all instances of this service." default:"sync-service-group" env:"SYNC_CONSUMER_GROUP"`
	BatchSize     int64         `help:"Max records fetched per stream read." default:"10" env:"SYNC_BATCH_SIZE"`
	BlockTimeout  time.Duration `help:"How long a stream read blocks waiting for records." default:"5s" env:"SYNC_BLOCK_TIMEOUT"`

	Redis    RedisOptions    `embed:"" prefix:"redis-"`
	Milvus   MilvusOptions   `embed:"" prefix:"milvus-"`
	Embedder EmbedderOptions `embed:"" prefix:"embedder-"`
	Listing  ListingOptions  `embed:"" prefix:"listing-"`
	User     UserOptions     `embed:"" prefix:"user-"`
	Metrics  MetricsOptions  `embed:"" prefix:"metrics-"`
}

type RedisOptions struct {
	Address  string `help:"Redis address." default:"localhost:6379" env:"SYNC_REDIS_ADDRESS"`
	Username string `help:"Redis username." env:"SYNC_REDIS_USERNAME"`
	Password string `help:"Redis password." env:"SYNC_REDIS_PASSWORD"`
	Database int    `help:"Redis database." default:"0" env:"SYNC_REDIS_DATABASE"`
}

type MilvusOptions struct {
	Address string `help:"Milvus proxy address." default:"localhost:19530" env:"SYNC_MILVUS_ADDRESS"`
}

type EmbedderOptions struct {
	URL       string        `help:"Embedding service base URL." default:"http://localhost:8100" env:"SYNC_EMBEDDER_URL"`
	Dimension int           `help:"Dense vector dimensionality." default:"128" env:"SYNC_EMBEDDER_DIMENSION"`
	Timeout   time.Duration `help:"Embedding request timeout." default:"30s" env:"SYNC_EMBEDDER_TIMEOUT"`
}

type ListingOptions struct {
	Stream string `help:"CDC stream for the Post table." default:"dbserver.TroTotVN.dbo.Post" env:"SYNC_LISTING_STREAM"`
	Queue  string `help:"Backfill queue for listings." default:"post-sync-simple" env:"SYNC_LISTING_QUEUE"`
	Policy string `help:"Status policy: index approved listings only, or everything." enum:"approved-only,all" default:"approved-only" env:"SYNC_LISTING_POLICY"`
}

type UserOptions struct {
	Stream string `help:"CDC stream for the Customer table." default:"dbz.trotot.Customer" env:"SYNC_USER_STREAM"`
	Queue  string `help:"Backfill queue for users." default:"user-sync-simple" env:"SYNC_USER_QUEUE"`
}

type MetricsOptions struct {
	Disable        bool   `help:"Disable the /metrics listener." env:"SYNC_METRICS_DISABLE"`
	ListenAddress  string `help:"Metrics listen address." default:":8080" env:"SYNC_METRICS_LISTEN_ADDRESS"`
	ReportInterval int32  `help:"Interval (seconds) for rate stats in the log." default:"10" env:"SYNC_METRICS_REPORT_INTERVAL"`
}

func New(args []string) (*kong.Context, *Options, error) {
	opts := &Options{}

	k, err := kong.New(
		opts,
		kong.Name("sync-service"),
		kong.Description("Syncs rental listing and user profile changes into the search index via Debezium CDC."),
		kong.ShortUsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create new kong instance")
	}

	kongCtx, err := k.Parse(args)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to parse CLI options")
	}

	return kongCtx, opts, nil
}
