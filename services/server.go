package services

import (
	"time"

	"craft-keeper/internal/config"
	"craft-keeper/internal/models"
)

/**
 * Server state shared by the HTTP controllers
 * @property {LauncherService} launcher - Pipeline behind every API
 * @property {time.Time} startTime - Reported by /healthz
 */
type Server struct {
	cfg       *config.AppConfig
	launcher  *LauncherService
	startTime time.Time
}

func NewServer(cfg *config.AppConfig, launcher *LauncherService) *Server {
	return &Server{cfg: cfg, launcher: launcher, startTime: time.Now()}
}

func (s *Server) Launcher() *LauncherService { return s.launcher }

/**
 * Build the readiness response
 * @returns {models.HealthResponse} Version, uptime and key counters
 * @example
 * health := server.GetHealthz()
 * fmt.Printf("Server status: %s, Uptime: %s\n", health.Status, health.Uptime)
 */
func (s *Server) GetHealthz() models.HealthResponse {
	uptime := time.Since(s.startTime)

	activeInstalls := 0
	for _, r := range s.launcher.Runs() {
		if r.Status == models.InstallRunning {
			activeInstalls++
		}
	}
	instances, _ := s.launcher.Instances().List()

	return models.HealthResponse{
		Version:   s.cfg.Launcher.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    uptime.Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:  GetTotalRequestCount(),
			ErrorRequests:  GetTotalErrorCount(),
			ActiveInstalls: activeInstalls,
			RunningGames:   len(s.launcher.Games()),
			CacheEntries:   s.launcher.Store().Len(),
			Instances:      len(instances),
		},
	}
}
