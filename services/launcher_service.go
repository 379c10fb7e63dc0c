package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/config"
	"craft-keeper/internal/download"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/launch"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/manifest"
	"craft-keeper/internal/models"
	"craft-keeper/internal/planner"
	"craft-keeper/internal/proc"
	"craft-keeper/internal/rules"
	"craft-keeper/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

/**
 * Launcher service wires the pipeline
 * @description
 * - config -> transport -> cache -> resolver -> planner -> orchestrator -> builder -> proc
 * - Resolution and planning errors are returned before any download starts
 * - An incomplete download stops a launch
 */
type LauncherService struct {
	cfg          *config.AppConfig
	store        *cache.Store
	resolver     *manifest.Resolver
	planner      *planner.Planner
	orchestrator *download.Orchestrator
	builder      *launch.Builder
	instances    *InstanceManager
	rctx         rules.Context
	log          zerolog.Logger

	mutex sync.Mutex
	runs  map[string]*InstallRun
	games map[int]*proc.GameProcess
}

// Installation is the outcome of a successful install.
type Installation struct {
	Descriptor *models.VersionDescriptor
	Plan       *models.DownloadPlan
}

/**
 * LaunchRequest 启动请求
 * @property {string} instance - 实例名，优先于 version
 * @property {string} version - 直接启动的版本
 * @property {launch.Options} options - 玩家与运行时参数
 */
type LaunchRequest struct {
	Instance string
	Version  string
	Options  launch.Options
}

/**
 * Create the launcher service
 * @param {*config.AppConfig} cfg - Application configuration
 * @param {transport.Transport} tr - Fetch capability
 * @param {*InstanceManager} instances - Instance storage, may be nil
 * @returns {*LauncherService} Service owning an open cache store, Close it when done
 */
func NewLauncherService(cfg *config.AppConfig, tr transport.Transport, instances *InstanceManager) (*LauncherService, error) {
	store, err := cache.Open(cfg.Cache.Root)
	if err != nil {
		return nil, fmt.Errorf("open cache '%s': %w", cfg.Cache.Root, err)
	}
	resolver := manifest.NewResolver(tr, store, cfg.Remote.VersionManifest)
	if instances == nil {
		instances = NewInstanceManager(filepath.Join(cfg.Cache.Root, "instances"))
	}
	return &LauncherService{
		cfg:          cfg,
		store:        store,
		resolver:     resolver,
		planner:      planner.New(resolver, cfg.Remote.Libraries, cfg.Remote.Resources),
		orchestrator: download.New(tr, store, download.WithMaxRetries(cfg.Download.MaxRetries)),
		builder:      launch.NewBuilder(store.Root(), cfg.Launcher.Name, cfg.Launcher.Version),
		instances:    instances,
		rctx:         rules.DetectContext(nil),
		log:          logger.With("launcher"),
		runs:         make(map[string]*InstallRun),
		games:        make(map[int]*proc.GameProcess),
	}, nil
}

// NewDefaultLauncherService builds the service from the global configuration over HTTP.
func NewDefaultLauncherService() (*LauncherService, error) {
	cfg := config.App()
	tr := transport.NewHTTPTransport(cfg.Download.Timeout, cfg.Launcher.Name+"/"+cfg.Launcher.Version)
	return NewLauncherService(cfg, tr, GetInstanceManager())
}

func (s *LauncherService) Close() error {
	return s.store.Close()
}

func (s *LauncherService) Store() *cache.Store { return s.store }

func (s *LauncherService) Instances() *InstanceManager { return s.instances }

// RuleContext is the platform rules are evaluated against.
func (s *LauncherService) RuleContext() rules.Context { return s.rctx }

// SetRuleContext overrides the detected platform, used to plan for another OS.
func (s *LauncherService) SetRuleContext(rctx rules.Context) { s.rctx = rctx }

func (s *LauncherService) Versions(ctx context.Context) (*manifest.VersionList, error) {
	return s.resolver.ListVersions(ctx)
}

// RefreshVersions forgets the memoized version list.
func (s *LauncherService) RefreshVersions() { s.resolver.Refresh() }

func (s *LauncherService) Resolve(ctx context.Context, versionID string) (*models.VersionDescriptor, error) {
	return s.resolver.Resolve(ctx, versionID)
}

// Plan resolves a version and computes its download plan without fetching artifacts.
func (s *LauncherService) Plan(ctx context.Context, versionID string) (*Installation, error) {
	desc, err := s.resolver.Resolve(ctx, versionID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planner.Plan(ctx, desc, s.rctx)
	if err != nil {
		return nil, err
	}
	return &Installation{Descriptor: desc, Plan: plan}, nil
}

/**
 * Install a version
 * @param {string} versionID - Version to install
 * @param {func(ProgressEvent)} onEvent - Receives every download event, may be nil
 * @returns {*Installation} Merged descriptor and plan, all files verified
 * @description
 * - Returns *download.IncompleteDownloadError when a task failed permanently
 */
func (s *LauncherService) Install(ctx context.Context, versionID string, onEvent func(models.ProgressEvent)) (*Installation, error) {
	inst, err := s.Plan(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.Download(ctx, inst.Plan, onEvent); err != nil {
		return nil, err
	}
	return inst, nil
}

// Download executes a plan with the configured concurrency.
func (s *LauncherService) Download(ctx context.Context, plan *models.DownloadPlan, onEvent func(models.ProgressEvent)) error {
	return s.orchestrator.Run(ctx, plan, s.cfg.Download.Concurrency, onEvent)
}

/**
 * Start an install in the background
 * @param {string} versionID - Version to install
 * @returns {*InstallRun} Tracked run, its events can be replayed through Since
 * @description
 * - Resolution and planning happen before returning, their errors are returned directly
 * - The run keeps going after the caller's request ends, Cancel stops it
 */
func (s *LauncherService) StartInstall(ctx context.Context, versionID string) (*InstallRun, error) {
	inst, err := s.Plan(ctx, versionID)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	run := newInstallRun(uuid.NewString(), inst.Descriptor.ID, len(inst.Plan.Tasks), cancel)

	s.mutex.Lock()
	s.pruneRunsLocked(time.Now())
	s.runs[run.ID] = run
	s.mutex.Unlock()

	s.log.Info().Str("run", run.ID).Str("version", run.VersionID).Msg("install started")
	go func() {
		defer cancel()
		err := s.Download(download.WithRunID(runCtx, run.ID), inst.Plan, run.publish)
		run.finish(err)
		if err != nil {
			s.log.Warn().Str("run", run.ID).Err(err).Msg("install ended with error")
		}
	}()
	return run, nil
}

func (s *LauncherService) GetRun(id string) (*InstallRun, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, &errs.Error{Code: errs.CodeNotFound, Path: id, Err: errors.New("install run not found")}
	}
	return run, nil
}

const (
	// runRetention is how long a finished install stays queryable.
	runRetention = 30 * time.Minute
	// maxFinishedRuns caps finished installs kept regardless of age.
	maxFinishedRuns = 32
)

// pruneRunsLocked forgets finished runs past runRetention, then the oldest
// finished runs beyond maxFinishedRuns. Running installs are never dropped.
func (s *LauncherService) pruneRunsLocked(now time.Time) {
	var finished []*InstallRun
	for id, r := range s.runs {
		d := r.Detail()
		if d.Status == models.InstallRunning {
			continue
		}
		if now.Sub(d.EndTime) > runRetention {
			delete(s.runs, id)
			continue
		}
		finished = append(finished, r)
	}
	if len(finished) <= maxFinishedRuns {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].Detail().EndTime.Before(finished[j].Detail().EndTime)
	})
	for _, r := range finished[:len(finished)-maxFinishedRuns] {
		delete(s.runs, r.ID)
	}
}

// Runs lists tracked installs, newest first.
func (s *LauncherService) Runs() []models.InstallDetail {
	s.mutex.Lock()
	s.pruneRunsLocked(time.Now())
	out := make([]models.InstallDetail, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Detail())
	}
	s.mutex.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

/**
 * Verify the installed files of a version
 * @param {string} versionID - Version whose plan is checked
 * @returns {[]TaskFailure} Files missing or not matching, empty when the install is intact
 * @description
 * - Indexed files are re-hashed, unindexed files with a known checksum are registered
 * - A corrupt file is removed so the next install downloads it again
 */
func (s *LauncherService) Verify(ctx context.Context, versionID string) ([]models.TaskFailure, error) {
	inst, err := s.Plan(ctx, versionID)
	if err != nil {
		return nil, err
	}
	var failures []models.TaskFailure
	for _, t := range inst.Plan.Tasks {
		if err := s.verifyTask(t); err != nil {
			var e *errs.Error
			if !errors.As(err, &e) {
				e = &errs.Error{Code: errs.CodeChecksumMismatch, Err: err}
			}
			e.Artifact = t.Identity
			failures = append(failures, models.TaskFailure{Task: t, Err: e})
		}
	}
	return failures, nil
}

func (s *LauncherService) verifyTask(t models.DownloadTask) error {
	abs := s.store.Abs(t.Path)
	var err error
	if _, ok := s.store.Lookup(t.Path); ok {
		err = s.store.Verify(t.Path)
	} else if _, statErr := os.Stat(abs); statErr != nil {
		return &errs.Error{Code: errs.CodeNotFound, Path: t.Path, Err: statErr}
	} else {
		err = s.store.VerifyAndRegister(t.Path, t.SHA1, t.Size)
	}
	if errors.Is(err, errs.ErrChecksumMismatch) {
		os.Remove(abs)
	}
	return err
}

/**
 * Install a version and build its launch spec
 * @param {LaunchRequest} req - Instance or version plus user options
 * @param {func(ProgressEvent)} onEvent - Download events, may be nil
 * @returns {*LaunchSpec} Spec ready for proc.Launch
 * @description
 * - Natives are extracted into natives/<version>
 * - Legacy asset indexes (virtual or map_to_resources) are copied into their name addressed tree
 */
func (s *LauncherService) Prepare(ctx context.Context, req LaunchRequest, onEvent func(models.ProgressEvent)) (*models.LaunchSpec, error) {
	versionID, opts := req.Version, req.Options
	if req.Instance != "" {
		inst, err := s.instances.Get(req.Instance)
		if err != nil {
			return nil, err
		}
		versionID = inst.Version
		opts = s.instances.LaunchOptions(inst, opts)
	}
	if versionID == "" {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: errors.New("no version to launch")}
	}
	if c, ok := launch.InspectToken(opts.AccessToken); ok && c.Expired(time.Now()) {
		s.log.Warn().Time("expires", c.Expires).Msg("session token has expired, the game may refuse to join servers")
	}

	inst, err := s.Install(ctx, versionID, onEvent)
	if err != nil {
		return nil, err
	}
	desc, plan := inst.Descriptor, inst.Plan

	if _, err := s.builder.ExtractNatives(plan, s.builder.NativesDir(desc.ID)); err != nil {
		return nil, err
	}
	gameDir := opts.GameDir
	if gameDir == "" {
		gameDir = s.store.Root()
	}
	if err := s.materializeAssets(ctx, desc, gameDir); err != nil {
		return nil, err
	}
	return s.builder.Build(desc, plan, s.rctx, opts)
}

func (s *LauncherService) materializeAssets(ctx context.Context, desc *models.VersionDescriptor, gameDir string) error {
	if desc.AssetIndex == nil {
		return nil
	}
	idx, err := s.resolver.LoadAssetIndex(ctx, desc.AssetIndex)
	if err != nil {
		return err
	}
	var dest string
	switch {
	case idx.MapToResources:
		dest = filepath.Join(gameDir, "resources")
	case idx.Virtual:
		dest = launch.VirtualAssetsDir(s.store.Root(), desc.AssetIndexID())
	default:
		return nil
	}
	n, err := launch.MaterializeAssets(idx, s.store.Root(), dest)
	if err != nil {
		return fmt.Errorf("materialize assets into '%s': %w", dest, err)
	}
	if n > 0 {
		s.log.Debug().Int("files", n).Str("dest", dest).Msg("legacy assets materialized")
	}
	return nil
}

/**
 * Install, prepare and start the game
 * @returns {*proc.GameProcess} Running game, the caller must drain Output()
 */
func (s *LauncherService) Launch(ctx context.Context, req LaunchRequest, onEvent func(models.ProgressEvent)) (*proc.GameProcess, error) {
	spec, err := s.Prepare(ctx, req, onEvent)
	if err != nil {
		return nil, err
	}
	gp, err := proc.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	pid := gp.Pid()
	s.mutex.Lock()
	s.games[pid] = gp
	s.mutex.Unlock()
	go func() {
		<-gp.Done()
		s.mutex.Lock()
		delete(s.games, pid)
		s.mutex.Unlock()
	}()
	return gp, nil
}

// Games lists running games.
func (s *LauncherService) Games() []models.ProcessDetail {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]models.ProcessDetail, 0, len(s.games))
	for _, gp := range s.games {
		out = append(out, gp.Detail())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pid < out[j].Pid })
	return out
}

// StopGame stops a running game by pid.
func (s *LauncherService) StopGame(pid int) error {
	s.mutex.Lock()
	gp, ok := s.games[pid]
	s.mutex.Unlock()
	if !ok {
		return &errs.Error{Code: errs.CodeNotFound, Err: fmt.Errorf("no running game with pid %d", pid)}
	}
	return gp.Stop()
}
