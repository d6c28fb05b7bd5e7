// Package agent provides retrieval agent configuration options.
package agent

import (
	"fmt"
	"time"

	"github.com/kart-io/rag-agent/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义检索代理的运行参数。
type Options struct {
	// MaxDocuments 参与合成的文档数量上限。
	MaxDocuments int `json:"max-documents" mapstructure:"max-documents"`

	// MaxContextTokens 上下文 token 预算（建议值，不做硬截断）。
	MaxContextTokens int `json:"max-context-tokens" mapstructure:"max-context-tokens"`

	// Organization 演示环境的默认组织 ID。
	Organization string `json:"organization" mapstructure:"organization"`

	// QueryTimeout 单次查询处理超时时间。
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`

	// Seed 启动时写入演示数据。
	Seed bool `json:"seed" mapstructure:"seed"`

	// AuditLogPath 审计日志输出文件，为空时写 stdout。
	AuditLogPath string `json:"audit-log-path" mapstructure:"audit-log-path"`
}

// NewOptions 创建默认代理配置。
func NewOptions() *Options {
	return &Options{
		MaxDocuments:     5,
		MaxContextTokens: 4000,
		Organization:     "org_demo",
		QueryTimeout:     60 * time.Second,
		Seed:             true,
	}
}

// AddFlags adds flags for agent options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.IntVar(&o.MaxDocuments, join+"agent.max-documents", o.MaxDocuments, "Maximum number of documents used for answer synthesis.")
	fs.IntVar(&o.MaxContextTokens, join+"agent.max-context-tokens", o.MaxContextTokens, "Advisory context token budget.")
	fs.StringVar(&o.Organization, join+"agent.organization", o.Organization, "Default organization ID.")
	fs.DurationVar(&o.QueryTimeout, join+"agent.query-timeout", o.QueryTimeout, "Per-query processing timeout.")
	fs.BoolVar(&o.Seed, join+"agent.seed", o.Seed, "Seed demo data at startup.")
	fs.StringVar(&o.AuditLogPath, join+"agent.audit-log-path", o.AuditLogPath, "Audit log file path (stdout when empty).")
}

// Validate validates the agent options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.MaxDocuments <= 0 {
		errs = append(errs, fmt.Errorf("agent max-documents must be positive"))
	}
	if o.Organization == "" {
		errs = append(errs, fmt.Errorf("agent organization is required"))
	}
	if o.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent query-timeout must be positive"))
	}
	return errs
}

// Complete completes the agent options with defaults.
func (o *Options) Complete() error {
	if o.MaxContextTokens <= 0 {
		o.MaxContextTokens = 4000
	}
	return nil
}
