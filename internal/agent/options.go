// Package app assembles and runs the retrieval agent service.
package app

import (
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	appopts "github.com/kart-io/rag-agent/pkg/app"
	"github.com/kart-io/rag-agent/pkg/infra/tracing"
	agentopts "github.com/kart-io/rag-agent/pkg/options/agent"
	cacheopts "github.com/kart-io/rag-agent/pkg/options/cache"
	fgaopts "github.com/kart-io/rag-agent/pkg/options/fga"
	llmopts "github.com/kart-io/rag-agent/pkg/options/llm"
	logopts "github.com/kart-io/rag-agent/pkg/options/logger"
	milvusopts "github.com/kart-io/rag-agent/pkg/options/milvus"
	httpopts "github.com/kart-io/rag-agent/pkg/options/server/http"
)

// Options contains all agent service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Trace contains OpenTelemetry tracing configuration.
	Trace *tracing.Options `json:"trace" mapstructure:"trace"`

	// FGA contains authorization engine configuration.
	FGA *fgaopts.Options `json:"fga" mapstructure:"fga"`

	// Chat contains the answer-generation provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Milvus 向量检索后端配置，EnableMilvus 打开时生效。
	Milvus       *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
	EnableMilvus bool                `json:"enable-milvus" mapstructure:"enable-milvus"`

	// Cache contains answer cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// Agent contains pipeline configuration.
	Agent *agentopts.Options `json:"agent" mapstructure:"agent"`

	// JWTSecret enables JWT bearer authentication when non-empty.
	JWTSecret string `json:"jwt-secret" mapstructure:"jwt-secret"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8090"

	cacheOpts := cacheopts.NewOptions()
	cacheOpts.KeyPrefix = "rag-agent:answer:"
	cacheOpts.TTL = 5 * time.Minute

	return &Options{
		HTTP:            httpOpts,
		ShutdownTimeout: 30 * time.Second,
		Log:             logopts.NewOptions(),
		Trace:           tracing.NewOptions(),
		FGA:             fgaopts.NewOptions(),
		Chat:            llmopts.NewProviderOptions(),
		Milvus:          milvusopts.NewOptions(),
		Cache:           cacheOpts,
		Agent:           agentopts.NewOptions(),
	}
}

// Flags returns the flags grouped by section.
func (o *Options) Flags() (fss appopts.NamedFlagSets) {
	o.HTTP.AddFlags(fss.FlagSet("server"))
	fss.FlagSet("server").DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")

	o.Log.AddFlags(fss.FlagSet("log"))
	o.Trace.AddFlags(fss.FlagSet("tracing"))
	o.FGA.AddFlags(fss.FlagSet("fga"))
	o.Chat.AddFlags(fss.FlagSet("chat"), "chat.")
	o.Milvus.AddFlags(fss.FlagSet("milvus"), "milvus.")
	fss.FlagSet("milvus").BoolVar(&o.EnableMilvus, "enable-milvus", o.EnableMilvus, "Rank search candidates with Milvus instead of the in-memory scorer.")
	o.Cache.AddFlags(fss.FlagSet("cache"))
	o.Agent.AddFlags(fss.FlagSet("agent"))

	fss.FlagSet("auth").StringVar(&o.JWTSecret, "jwt-secret", o.JWTSecret, "HMAC secret for JWT bearer tokens (demo tokens always work).")
	return fss
}

// Validate validates all options.
func (o *Options) Validate() error {
	var errs []error

	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Trace.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.HTTP.Validate()...)
	errs = append(errs, o.FGA.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	if o.EnableMilvus {
		errs = append(errs, o.Milvus.Validate()...)
	}
	errs = append(errs, o.Cache.Validate()...)
	errs = append(errs, o.Agent.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Complete completes the options with computed defaults.
func (o *Options) Complete() error {
	if err := o.Trace.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	if err := o.Cache.Complete(); err != nil {
		return err
	}
	return o.Agent.Complete()
}
