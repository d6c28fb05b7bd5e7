// Package fga provides OpenFGA authorization engine configuration options.
package fga

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kart-io/rag-agent/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义 OpenFGA 服务端连接配置。
type Options struct {
	// APIURL OpenFGA HTTP API 地址。
	APIURL string `json:"api-url" mapstructure:"api-url"`

	// StoreID 已有 store 的 ID，为空时启动阶段自动创建。
	StoreID string `json:"store-id" mapstructure:"store-id"`

	// AuthorizationModelID 已有授权模型的 ID，为空时启动阶段自动写入。
	AuthorizationModelID string `json:"authorization-model-id" mapstructure:"authorization-model-id"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions 创建默认 OpenFGA 配置。
func NewOptions() *Options {
	return &Options{
		APIURL:     "http://localhost:8080",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags for OpenFGA options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.APIURL, join+"fga.api-url", o.APIURL, "OpenFGA HTTP API URL.")
	fs.StringVar(&o.StoreID, join+"fga.store-id", o.StoreID, "OpenFGA store ID (created at startup when empty).")
	fs.StringVar(&o.AuthorizationModelID, join+"fga.authorization-model-id", o.AuthorizationModelID, "OpenFGA authorization model ID (written at startup when empty).")
	fs.DurationVar(&o.Timeout, join+"fga.timeout", o.Timeout, "OpenFGA request timeout.")
	fs.IntVar(&o.MaxRetries, join+"fga.max-retries", o.MaxRetries, "OpenFGA maximum number of retries.")
}

// Validate validates the OpenFGA options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.APIURL == "" {
		errs = append(errs, fmt.Errorf("fga api-url is required"))
	} else if _, err := url.Parse(o.APIURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid fga api-url: %w", err))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fga timeout must be positive"))
	}
	return errs
}

// Complete completes the OpenFGA options with defaults.
func (o *Options) Complete() error {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return nil
}
