package root

import (
	"craft-keeper/internal/config"
	"craft-keeper/internal/env"
	"craft-keeper/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var RootCmd = &cobra.Command{
	Use:   "craft-keeper",
	Short: "游戏启动器命令行",
	Long:  `craft-keeper解析版本描述、下载并校验游戏文件、组装启动参数并启动游戏，也可以作为HTTP服务运行`,
	// 错误由 main 统一输出
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return err
		}
		cfg := config.App()
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		// 命令行模式下日志只写文件，终端留给进度和表格
		logger.InitLogger(cfg.Log.Path, level, env.Daemon)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别(debug/info/warn/error)")
}
