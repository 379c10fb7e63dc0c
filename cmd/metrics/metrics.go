package metrics

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"craft-keeper/cmd/root"
	"craft-keeper/internal/config"
	"craft-keeper/services"

	"github.com/spf13/cobra"
)

var (
	pushGatewayAddr string
	pushInterval    time.Duration
	pushOnce        bool
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&pushGatewayAddr, "addr", "a", "", "Pushgateway地址")
	Cmd.Flags().DurationVarP(&pushInterval, "interval", "i", 0, "上报周期，默认使用配置文件中的值")
	Cmd.Flags().BoolVar(&pushOnce, "once", false, "只上报一次")
}

var Cmd = &cobra.Command{
	Use:   "metrics",
	Short: "上报Prometheus指标",
	Long:  "把下载指标推送到Pushgateway，instance 标签为本机主机名",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.App()
		if pushGatewayAddr == "" {
			pushGatewayAddr = cfg.Metrics.Pushgateway
		}
		if pushInterval <= 0 {
			pushInterval = cfg.Metrics.Interval
		}
		host, _ := os.Hostname()

		if pushOnce || pushInterval <= 0 {
			if err := services.PushMetrics(pushGatewayAddr, host); err != nil {
				return fmt.Errorf("指标上报失败: %w\n请检查Pushgateway地址是否正确且可访问", err)
			}
			fmt.Printf("metrics pushed to %s\n", pushGatewayAddr)
			return nil
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return services.CollectAndPushMetrics(ctx, pushGatewayAddr, host, pushInterval)
	},
}
