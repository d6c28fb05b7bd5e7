package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/biz"
	"github.com/kart-io/rag-agent/internal/agent/handler"
	"github.com/kart-io/rag-agent/internal/agent/router"
	"github.com/kart-io/rag-agent/internal/agent/store"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
	milvuscomp "github.com/kart-io/rag-agent/pkg/component/milvus"
	rediscomp "github.com/kart-io/rag-agent/pkg/component/redis"
	"github.com/kart-io/rag-agent/pkg/infra/app"
	"github.com/kart-io/rag-agent/pkg/infra/middleware"
	"github.com/kart-io/rag-agent/pkg/infra/pool"
	"github.com/kart-io/rag-agent/pkg/infra/server"
	"github.com/kart-io/rag-agent/pkg/infra/tracing"
	"github.com/kart-io/rag-agent/pkg/llm"
	"github.com/kart-io/rag-agent/pkg/llm/resilience"

	// 注册 LLM 供应商
	_ "github.com/kart-io/rag-agent/pkg/llm/openai"
)

// Run assembles and runs the agent service with the given options.
func Run(opts *Options) error {
	printBanner(opts)

	// 1. 初始化日志
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting RAG agent service...", "version", app.GetVersion())

	// 2. 初始化链路追踪
	if opts.Trace.Enabled {
		opts.Trace.ServiceVersion = app.GetVersion()
		tracerProvider, err := tracing.NewProvider(opts.Trace)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
			defer cancel()
			_ = tracerProvider.Shutdown(shutdownCtx)
		}()
		logger.Infow("Tracing enabled", "exporter", opts.Trace.ExporterType, "endpoint", opts.Trace.Endpoint)
	}

	// 3. 初始化授权引擎客户端
	authzClient := fga.NewClient(opts.FGA)
	if err := bootstrapAuthz(context.Background(), authzClient, opts); err != nil {
		// 引擎不可达时继续启动：未配置的引擎按演示模式放行。
		logger.Warnw("Authorization engine bootstrap failed, running with permissive checks", "error", err)
	}

	// 4. 初始化 Redis 客户端（答案缓存与 Embedding 缓存共用）
	redisClient := buildRedisClient(opts)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 5. 初始化存储层（默认为内存存储 + 确定性哈希向量）
	dataStore, milvusClient, err := buildStore(opts, redisClient)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if milvusClient != nil {
		defer milvusClient.Close(context.Background())
	}
	logger.Info("Store initialized")

	// 6. 初始化答案缓存
	answerCache := buildAnswerCache(opts, redisClient)

	// 7. 初始化生成后端
	chatProvider := buildChatProvider(opts)

	// 8. 初始化审计日志
	auditOut, closeAudit, err := auditWriter(opts.Agent.AuditLogPath)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer closeAudit()

	// 9. 初始化工作池
	checkPool, err := pool.NewPool("authz-check", pool.AuthzCheckPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to create authz check pool: %w", err)
	}
	defer checkPool.Release()
	queryPool, err := pool.NewPool("query", pool.QueryPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to create query pool: %w", err)
	}
	defer queryPool.Release()

	// 10. 组装 Agent
	checker := biz.NewChecker(authzClient, checkPool)
	agent := biz.NewAgent(biz.Config{
		Store:        dataStore,
		Checker:      checker,
		Synthesizer:  biz.NewSynthesizer(chatProvider, opts.Chat.Model),
		Cache:        answerCache,
		Audit:        biz.NewAuditSink(auditOut),
		MaxDocuments: opts.Agent.MaxDocuments,
		QueryTimeout: opts.Agent.QueryTimeout,
		QueryPool:    queryPool,
	})
	logger.Info("Agent pipeline initialized")

	// 11. 写入演示数据
	if opts.Agent.Seed {
		if err := seedDemoData(context.Background(), dataStore, authzClient); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Info("Demo data seeded")
	}

	// 12. 初始化 HTTP 服务器并注册路由
	serverManager := server.NewManager(
		server.WithHTTPOptions(opts.HTTP),
		server.WithShutdownTimeout(opts.ShutdownTimeout),
		server.WithMiddleware(
			middleware.Recovery(),
			middleware.RequestID(),
			middleware.Logger("/health", "/metrics"),
			middleware.CORS(),
		),
	)

	agentHandler := handler.New(agent, dataStore, checker, authzClient, opts.Agent.Organization)
	auth := handler.NewAuthenticator(opts.JWTSecret)
	if err := router.Register(serverManager, agentHandler, auth); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Infow("RAG agent service is ready", "addr", opts.HTTP.Addr)
	return serverManager.Run()
}

// bootstrapAuthz ensures the engine has a store and the authorization model.
// Explicitly configured store/model ids are used as-is; otherwise a store is
// created and the model written at startup.
func bootstrapAuthz(ctx context.Context, client *fga.Client, opts *Options) error {
	if opts.FGA.StoreID != "" && opts.FGA.AuthorizationModelID != "" {
		client.SetStore(opts.FGA.StoreID, opts.FGA.AuthorizationModelID)
		return nil
	}

	storeID := opts.FGA.StoreID
	if storeID == "" {
		var err error
		storeID, err = client.CreateStore(ctx, "rag-agent")
		if err != nil {
			return err
		}
	}
	client.SetStore(storeID, "")

	modelID, err := client.WriteAuthorizationModel(ctx, fga.DemoAuthorizationModel())
	if err != nil {
		return err
	}
	client.SetStore(storeID, modelID)
	logger.Infow("Authorization engine ready", "store_id", storeID, "model_id", modelID)
	return nil
}

// buildStore creates the data store. With Milvus enabled, documents are
// vectorized by the configured embedding provider and ranked by Milvus;
// otherwise the deterministic in-memory scorer is used. Embeddings are
// cached in Redis when a client is available.
func buildStore(opts *Options, redisClient *rediscomp.Client) (*store.MemoryStore, *milvuscomp.Client, error) {
	if !opts.EnableMilvus {
		return store.NewMemoryStore(nil, nil), nil, nil
	}

	client, err := milvuscomp.New(opts.Milvus)
	if err != nil {
		return nil, nil, err
	}
	searcher, err := store.NewMilvusSearcher(client, "rag_agent_docs", store.EmbeddingDim)
	if err != nil {
		client.Close(context.Background())
		return nil, nil, err
	}

	var vectorizer store.Vectorizer
	if opts.Chat.Configured() {
		provider, err := llm.NewEmbeddingProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
		if err != nil {
			client.Close(context.Background())
			return nil, nil, err
		}
		if redisClient != nil {
			provider = llm.NewCachedEmbeddingProvider(provider, redisClient.Client(), nil)
		}
		vectorizer = store.NewLLMVectorizer(provider)
	}
	return store.NewMemoryStore(vectorizer, searcher), client, nil
}

// buildRedisClient connects to Redis when caching is enabled. A failed
// connection disables caching instead of failing startup.
func buildRedisClient(opts *Options) *rediscomp.Client {
	if !opts.Cache.Enabled {
		return nil
	}

	client, err := rediscomp.New(opts.Cache.Redis)
	if err != nil {
		logger.Warnw("Redis unreachable, caching disabled", "addr", opts.Cache.Redis.Addr(), "error", err)
		return nil
	}
	return client
}

func buildAnswerCache(opts *Options, redisClient *rediscomp.Client) *biz.AnswerCache {
	if redisClient == nil {
		return biz.NewAnswerCache(nil, opts.Cache.TTL)
	}
	logger.Infow("Answer cache enabled", "addr", opts.Cache.Redis.Addr(), "ttl", opts.Cache.TTL)
	return biz.NewAnswerCache(redisClient.Client(), opts.Cache.TTL)
}

// buildChatProvider creates the generation backend, wrapped with retry and
// circuit breaking. Without an API key the deterministic fallback answers
// are used instead.
func buildChatProvider(opts *Options) llm.ChatProvider {
	if !opts.Chat.Configured() {
		logger.Info("No LLM API key configured, using deterministic fallback answers")
		return nil
	}

	provider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		logger.Warnw("Chat provider initialization failed, using fallback answers",
			"provider", opts.Chat.Provider, "error", err)
		return nil
	}
	logger.Infow("Chat provider initialized", "provider", provider.Name(), "model", opts.Chat.Model)
	return resilience.NewResilientChatProvider(provider, nil, nil)
}

func auditWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func printBanner(_ *Options) {
	fmt.Printf("Starting %s...\n", appName)
}
