package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yqhp/dataflow-engine/api/rest/client"
	"yqhp/dataflow-engine/internal/executor"
	"yqhp/dataflow-engine/internal/pipeline"
	"yqhp/dataflow-engine/pkg/logger"
	pkgexecutor "yqhp/dataflow-engine/pkg/executor"
)

var (
	// run 命令的 flags
	runRemote string
)

// runCmd 是 run 子命令
var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "执行管道定义",
	Long: `装配 YAML 管道定义并运行到输入耗尽。

默认在进程内启动执行器；指定 --remote 时任务提交到
远端执行器节点。`,
	Example: `  # 进程内执行
  dataflow-engine run pipeline.yaml

  # 提交到远端执行器
  dataflow-engine run pipeline.yaml --remote http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runRemote, "remote", "", "远端执行器地址（留空则进程内执行）")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	def, err := pipeline.LoadFile(args[0])
	if err != nil {
		return err
	}

	var cl pkgexecutor.Client
	if runRemote != "" {
		cl = client.NewClient(&client.Config{
			BaseURL:        runRemote,
			RequestTimeout: cfg.Client.RequestTimeout,
			GatherTimeout:  cfg.Client.GatherTimeout,
		})
	} else {
		engine := executor.NewEngine(&executor.Config{
			Workers:   cfg.Engine.Workers,
			QueueSize: cfg.Engine.QueueSize,
		}, executor.NewRegistry())
		if err := engine.Start(); err != nil {
			return err
		}
		defer engine.Stop()
		cl = engine
	}

	p, err := pipeline.Build(def, cl)
	if err != nil {
		return err
	}

	logger.Info("运行管道 %s", def.Name)
	if err := p.Run(cmd.Context()); err != nil {
		return err
	}

	if results := p.Results(); results != nil {
		for _, r := range results {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
	}
	return nil
}
