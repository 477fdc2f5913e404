// Package cmd 提供 dataflow-engine CLI 的命令实现
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yqhp/dataflow-engine/internal/config"
	"yqhp/dataflow-engine/pkg/logger"
)

const (
	// Version 是当前版本号
	Version = "0.1.0"
	// Banner 是启动时显示的 ASCII 艺术
	Banner = `
   _        |‾‾| Dataflow Engine %s
  | |__,    |  |
  |  __|    |  |
  | |   \   |  |
  |_|    \_ |__|
`
)

var (
	// 全局配置
	cfgFile string
	debug   bool
)

// rootCmd 是根命令
var rootCmd = &cobra.Command{
	Use:   "dataflow-engine",
	Short: "推送式数据流引擎",
	Long: `dataflow-engine 是一个推送式数据流引擎，算子把计算提交给
执行器并向下游传递句柄，只在 gather 处等待结果。`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logger.SetLevel(logger.LevelDebug)
		}
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// 全局 flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "启用调试日志")

	// 禁用默认的 completion 命令
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// 自定义版本模板
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig 加载配置并应用日志设置
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}

	if !debug {
		logger.SetLevelFromString(cfg.Logging.Level)
	}
	switch cfg.Logging.Output {
	case "", "stderr":
	case "stdout":
		logger.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		logger.SetOutput(f)
	}
	return cfg, nil
}
