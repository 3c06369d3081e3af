package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/config"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/analyst"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/llm"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/logger"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/repl"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/scheduler"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/store"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/wazuh"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "./config.toml", "配置文件路径")
	flag.Parse()

	// 使用 signal.NotifyContext 创建可被信号取消的 context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 加载配置
	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Initialize(cfg)
	slog.Info("main.config.loaded", "path", *configPath)

	// 初始化存储
	st, err := store.NewSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	// 初始化 Wazuh 客户端
	client, err := wazuh.NewClient(cfg.Wazuh, cfg.Indexer)
	if err != nil {
		log.Fatalf("failed to create wazuh client: %v", err)
	}

	// 构建各 agent 的 LLM Model
	factory := llm.NewFactory()
	registry := llm.NewModelRegistry()
	defer registry.Close()
	for name, agentCfg := range cfg.Agents {
		if !agentCfg.Enabled {
			continue
		}
		model, err := factory.Build(ctx, agentCfg.LLM)
		if err != nil {
			log.Fatalf("failed to build model for agent %q: %v", name, err)
		}
		registry.Register(name, model)
	}

	model, err := registry.Get("analyst")
	if err != nil {
		log.Fatalf("analyst agent is not configured: %v", err)
	}
	a := analyst.New(client, model, cfg.Chat.MaxRecent, cfg.App.MaxSteps)

	// 周期任务调度器
	runner := scheduler.NewRunner(a, st, cfg.Chat.SessionID, scheduler.RetryPolicy{
		MaxAttempts: cfg.Proactive.MaxRetries + 1,
		Delay:       cfg.Proactive.RetryDelay.Duration,
	}, cfg.Proactive.DefaultInterval)

	// 持久化的用户偏好可以覆盖配置文件里的默认开关
	prefs, err := st.Preferences(ctx)
	if err != nil {
		log.Fatalf("failed to read preferences: %v", err)
	}
	if cfg.Proactive.Enabled || prefs.ProactiveEnabled {
		runner.Start(ctx)
		defer runner.Shutdown()
	}

	// 启动交互式终端
	r := repl.NewREPL(ctx, a, client, client, runner, st, cfg.Chat.SessionID)
	defer r.Close()
	if err := r.Run(); err != nil {
		log.Fatalf("repl exited: %v", err)
	}

	slog.Info("main.shutdown")
}
