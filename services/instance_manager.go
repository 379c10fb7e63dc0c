package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"craft-keeper/internal/env"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/launch"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrInstanceExists   = errors.New("instance already exists")
)

const instanceFileName = "instance.yaml"

/**
 * Instance manager keeps named game instances on disk
 * @property {string} dir - <home>/instances
 * @description
 * - Each instance is a directory holding instance.yaml, the directory doubles as
 *   the game directory of the instance
 */
type InstanceManager struct {
	dir   string
	mutex sync.Mutex
}

var instanceManager *InstanceManager

// GetInstanceManager returns the manager rooted at the launcher home.
func GetInstanceManager() *InstanceManager {
	if instanceManager != nil {
		return instanceManager
	}
	instanceManager = NewInstanceManager(filepath.Join(env.LauncherDir, env.InstancesDir))
	return instanceManager
}

func NewInstanceManager(dir string) *InstanceManager {
	return &InstanceManager{dir: dir}
}

func (im *InstanceManager) Dir(name string) string {
	return filepath.Join(im.dir, name)
}

func validInstanceName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return &errs.Error{Code: errs.CodeInvalidInput, Path: name, Err: fmt.Errorf("invalid instance name")}
	}
	return nil
}

func notFound(name string) error {
	return &errs.Error{Code: errs.CodeNotFound, Path: name, Err: ErrInstanceNotFound}
}

/**
 * List all instances
 * @returns {[]models.Instance} Instances sorted by name
 * @description
 * - Directories without a readable instance.yaml are skipped with a warning
 */
func (im *InstanceManager) List() ([]models.Instance, error) {
	entries, err := os.ReadDir(im.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []models.Instance
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		inst, err := im.Get(e.Name())
		if err != nil {
			logger.Warnf("Skip instance '%s': %v", e.Name(), err)
			continue
		}
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (im *InstanceManager) Get(name string) (*models.Instance, error) {
	if err := validInstanceName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(im.Dir(name), instanceFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name)
		}
		return nil, err
	}
	var inst models.Instance
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("parse %s of instance '%s': %w", instanceFileName, name, err)
	}
	inst.Name = name
	return &inst, nil
}

/**
 * Create a new instance
 * @param {models.Instance} inst - Instance to store, Name and Version are required
 * @returns {error} ErrInstanceExists when the name is taken
 */
func (im *InstanceManager) Create(inst models.Instance) error {
	if err := validInstanceName(inst.Name); err != nil {
		return err
	}
	if inst.Version == "" {
		return &errs.Error{Code: errs.CodeInvalidInput, Path: inst.Name, Err: fmt.Errorf("instance without version")}
	}
	im.mutex.Lock()
	defer im.mutex.Unlock()

	dir := im.Dir(inst.Name)
	if _, err := os.Stat(filepath.Join(dir, instanceFileName)); err == nil {
		return &errs.Error{Code: errs.CodeInvalidInput, Path: inst.Name, Err: ErrInstanceExists}
	}
	data, err := yaml.Marshal(&inst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, instanceFileName), data, 0644); err != nil {
		return err
	}
	logger.Infof("Instance '%s' created for version %s", inst.Name, inst.Version)
	return nil
}

// Remove deletes the instance directory, including its saves.
func (im *InstanceManager) Remove(name string) error {
	if _, err := im.Get(name); err != nil {
		return err
	}
	im.mutex.Lock()
	defer im.mutex.Unlock()
	if err := os.RemoveAll(im.Dir(name)); err != nil {
		return err
	}
	logger.Infof("Instance '%s' removed", name)
	return nil
}

/**
 * Convert instance settings into launch options
 * @param {models.Instance} inst - Instance to launch
 * @param {launch.Options} base - Caller options (player, token), instance settings override runtime fields
 * @returns {launch.Options} Options for the launch spec builder
 * @description
 * - Window size enables has_custom_resolution through Width/Height
 * - min_memory/max_memory become -Xms/-Xmx ahead of the extra java arguments
 */
func (im *InstanceManager) LaunchOptions(inst *models.Instance, base launch.Options) launch.Options {
	opts := base
	opts.GameDir = im.Dir(inst.Name)
	if inst.Java.Path != "" {
		opts.JavaPath = inst.Java.Path
	}
	if inst.Window.Width > 0 && inst.Window.Height > 0 {
		opts.Width = inst.Window.Width
		opts.Height = inst.Window.Height
	}
	var jvm []string
	if inst.Java.MinMemory != "" {
		jvm = append(jvm, "-Xms"+inst.Java.MinMemory)
	}
	if inst.Java.MaxMemory != "" {
		jvm = append(jvm, "-Xmx"+inst.Java.MaxMemory)
	}
	jvm = append(jvm, strings.Fields(inst.Java.Arguments)...)
	opts.BaseJVMArgs = append(jvm, base.BaseJVMArgs...)
	return opts
}
