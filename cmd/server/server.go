package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craft-keeper/cmd/root"
	"craft-keeper/controllers"
	"craft-keeper/internal/config"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"
	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Long:  "启动HTTP服务，通过REST接口提供版本解析、安装、实例管理和游戏启动",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startServer(ctx, config.App())
	},
}

/**
 * Run the HTTP server until ctx is done
 * @param {context.Context} ctx - Cancelled on SIGINT/SIGTERM
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {error} Startup error, or the first serve error
 * @description
 * - Serves the same router on the tcp address and the unix socket
 * - Pushes download metrics when a pushgateway is configured
 * - On shutdown running installs are cancelled and running games stopped
 */
func startServer(ctx context.Context, cfg *config.AppConfig) error {
	if err := utils.CheckPortAvailable(cfg.Server.Address); err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	launcher, err := services.NewDefaultLauncherService()
	if err != nil {
		return fmt.Errorf("初始化启动器失败: %w", err)
	}
	defer launcher.Close()
	router := controllers.NewRouter(services.NewServer(cfg, launcher))

	listeners, err := CreateListeners(listenAddrs(cfg))
	if len(listeners) == 0 {
		return fmt.Errorf("没有可用的侦听地址: %w", err)
	}
	if err != nil {
		logger.Warnf("Some listen addresses are unavailable: %v", err)
		err = nil
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		go func(l net.Listener) {
			logger.Infof("HTTP server listening on %s://%s", l.Addr().Network(), l.Addr().String())
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(l)
	}

	if cfg.Metrics.Pushgateway != "" && cfg.Metrics.Interval > 0 {
		go func() {
			host, _ := os.Hostname()
			if err := services.CollectAndPushMetrics(ctx, cfg.Metrics.Pushgateway, host, cfg.Metrics.Interval); err != nil {
				logger.Warnf("Metrics push disabled: %v", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
	case err = <-errCh:
		logger.Errorf("HTTP server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		logger.Warnf("HTTP server shutdown: %v", sErr)
	}
	stopAll(launcher)
	if cfg.Server.Socket != "" {
		os.Remove(cfg.Server.Socket)
	}
	return err
}

func stopAll(launcher *services.LauncherService) {
	for _, d := range launcher.Runs() {
		if d.Status != models.InstallRunning {
			continue
		}
		if run, err := launcher.GetRun(d.ID); err == nil {
			run.Cancel()
			<-run.Done()
		}
	}
	for _, g := range launcher.Games() {
		if err := launcher.StopGame(g.Pid); err != nil {
			logger.Warnf("Failed to stop game (PID: %d): %v", g.Pid, err)
		}
	}
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
