package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yqhp/dataflow-engine/api/rest"
	"yqhp/dataflow-engine/internal/executor"
	"yqhp/dataflow-engine/pkg/logger"
)

var (
	// worker 命令的 flags
	workerAddress string
	workerWorkers int
)

// workerCmd 是 worker 子命令
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "启动执行器节点",
	Long: `启动执行器节点，通过 REST API 接受任务提交。

执行器节点负责：
  - 接收任务并异步执行
  - 解析参数中的句柄依赖
  - 存储结果供 gather 获取`,
	Example: `  # 使用默认配置启动
  dataflow-engine worker

  # 指定监听地址和并发数
  dataflow-engine worker --address :9090 --workers 8

  # 使用配置文件
  dataflow-engine worker --config config.yaml`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVar(&workerAddress, "address", "", "HTTP 服务地址")
	workerCmd.Flags().IntVar(&workerWorkers, "workers", 0, "工作协程数")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workerAddress != "" {
		cfg.Server.Address = workerAddress
	}
	if workerWorkers > 0 {
		cfg.Engine.Workers = workerWorkers
	}

	engine := executor.NewEngine(&executor.Config{
		Workers:   cfg.Engine.Workers,
		QueueSize: cfg.Engine.QueueSize,
	}, executor.NewRegistry())
	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Stop()

	server := rest.NewServer(engine, &rest.Config{
		Address:       cfg.Server.Address,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		ResultTimeout: cfg.Server.ResultTimeout,
		EnableCORS:    cfg.Server.EnableCORS,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("执行器节点监听 %s，%d 个 worker", cfg.Server.Address, cfg.Engine.Workers)
		errCh <- server.Start()
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("收到信号 %s，正在关闭", sig)
		return server.ShutdownWithTimeout(10 * time.Second)
	}
}
