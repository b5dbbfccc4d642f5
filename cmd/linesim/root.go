package main

import (
	"assembly-line/internal/api"
	"assembly-line/internal/config"
	"assembly-line/internal/engine"
	"assembly-line/internal/event"
	"assembly-line/internal/handlers"
	"assembly-line/internal/intake"
	"assembly-line/internal/persistence"
	"assembly-line/internal/scenario"
	"assembly-line/internal/web"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "linesim",
		Short:         "装配线调度模拟",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认当前目录的 config.yaml)")

	root.AddCommand(newServeCmd(&configPath), newSimulateCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API、WebSocket 看板和 Prometheus 指标",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
			slog.SetDefault(logger)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// serve 组装所有组件并运行到 ctx 被取消
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 1. 初始化核心组件
	hub := web.NewHub(logger)
	go hub.Run(ctx)
	stateTracker := web.NewStateTracker(hub)

	eventBus := event.NewBus()

	var journal *persistence.Journal
	if cfg.JournalPath != "" {
		j, err := persistence.NewJournal(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("无法打开生产日志: %w", err)
		}
		defer j.Close()
		journal = j
	}
	recorder := persistence.NewRecorder(journal, logger)
	// 重放历史日志，统计跨越多次运行累计
	restored, err := recorder.Recover()
	if err != nil {
		return fmt.Errorf("重放生产日志失败: %w", err)
	}
	if journal != nil {
		logger.Info("从生产日志恢复统计", "path", cfg.JournalPath, "orders", restored)
	}

	// 2. 注册事件处理器
	handlers.RegisterEventHandlers(eventBus, stateTracker, logger)

	// 3. 初始化调度引擎
	coord, err := engine.Build(cfg, engine.Options{Statistics: recorder, Bus: eventBus, Logger: logger})
	if err != nil {
		return err
	}
	srv := api.NewServer(coord, intake.NewCatalog(cfg.Models), api.Options{
		Stats:   recorder,
		Tracker: stateTracker,
		Hub:     hub,
		Logger:  logger,
	})

	// 4. 启动 API 服务
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API 和看板服务器启动", "addr", cfg.HTTPAddr, "start", coord.CurrentTime())
		errCh <- httpServer.ListenAndServe()
	}()

	// 5. 优雅停机
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API 服务器启动失败: %w", err)
	case <-ctx.Done():
	}
	logger.Info("接收到停机信号，正在优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("模拟结束，系统已安全退出。")
	return nil
}

func newSimulateCmd(configPath *string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "重放场景脚本并输出 YAML 报告",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return simulate(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出引擎日志")
	return cmd
}

// simulateOutput 是 simulate 命令的输出
type simulateOutput struct {
	Report  *scenario.Report    `yaml:"report"`
	Summary persistence.Summary `yaml:"summary"`
}

func simulate(ctx context.Context, cfg *config.Config, path string, out io.Writer, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开场景失败: %w", err)
	}
	defer f.Close()
	script, err := scenario.Load(f)
	if err != nil {
		return err
	}

	recorder := persistence.NewRecorder(nil, logger)
	coord, err := engine.Build(cfg, engine.Options{Statistics: recorder, Logger: logger})
	if err != nil {
		return err
	}

	report, runErr := scenario.NewRunner(coord, intake.NewCatalog(cfg.Models)).Run(ctx, script)
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	if err := enc.Encode(simulateOutput{Report: report, Summary: recorder.Summary()}); err != nil {
		return err
	}
	return runErr
}
