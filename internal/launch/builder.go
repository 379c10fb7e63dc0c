// Package launch turns a merged descriptor and its downloaded files into the
// command line of the game.
package launch

import (
	"crypto/md5"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"craft-keeper/internal/env"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/manifest"
	"craft-keeper/internal/models"
	"craft-keeper/internal/rules"

	"github.com/google/uuid"
)

var placeholder = regexp.MustCompile(`\$\{([^}]*)\}`)

// legacyJVMArgs are used for descriptors that predate structured JVM arguments.
var legacyJVMArgs = []models.Argument{
	{Value: []string{"-Djava.library.path=${natives_directory}"}},
	{Value: []string{"-cp"}},
	{Value: []string{"${classpath}"}},
}

/**
 * Per launch user options
 * @property {string} playerName - Display name, ${auth_player_name}
 * @property {string} playerUUID - Profile id, derived from the name when empty
 * @property {string} accessToken - Opaque session token
 * @property {string} gameDir - Working directory of the game, defaults to the cache root
 * @property {int} width - Window width, with height enables has_custom_resolution
 * @property {[]string} baseJVMArgs - Placed before every descriptor JVM argument
 * @property {map[string]string} extra - Additional substitutions (quickPlayPath, ...)
 */
type Options struct {
	PlayerName  string
	PlayerUUID  string
	AccessToken string
	UserType    string
	ClientID    string
	XUID        string
	JavaPath    string
	GameDir     string
	Width       int
	Height      int
	DemoUser    bool
	Features    map[string]bool
	BaseJVMArgs []string
	Extra       map[string]string
	Env         map[string]string
}

func (o Options) withDefaults() Options {
	if o.PlayerName == "" {
		o.PlayerName = "Player"
	}
	if o.PlayerUUID == "" {
		o.PlayerUUID = OfflineUUID(o.PlayerName)
	}
	if o.XUID == "" {
		if c, ok := InspectToken(o.AccessToken); ok {
			o.XUID = c.XUID
		}
	}
	if o.AccessToken == "" {
		o.AccessToken = "0"
	}
	if o.UserType == "" {
		o.UserType = "legacy"
	}
	if o.JavaPath == "" {
		o.JavaPath = "java"
	}
	return o
}

// OfflineUUID is the name based (version 3) profile id used for offline play.
func OfflineUUID(name string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum).String()
}

/**
 * Launch spec builder
 * @property {string} root - Cache root holding libraries/, natives/, assets/ and versions/
 * @property {string} launcherName - ${launcher_name}
 * @property {string} launcherVersion - ${launcher_version}
 */
type Builder struct {
	root            string
	launcherName    string
	launcherVersion string
}

func NewBuilder(root, launcherName, launcherVersion string) *Builder {
	return &Builder{root: root, launcherName: launcherName, launcherVersion: launcherVersion}
}

// NativesDir is where the natives of a version are extracted.
func (b *Builder) NativesDir(versionID string) string {
	return filepath.Join(b.root, env.NativesDir, versionID)
}

func (b *Builder) abs(rel string) string {
	return filepath.Join(b.root, filepath.FromSlash(rel))
}

// Classpath lists library jars in plan order with the client jar last.
func (b *Builder) Classpath(desc *models.VersionDescriptor, plan *models.DownloadPlan) []string {
	var cp []string
	client := b.abs(manifest.ClientPath(desc.ID))
	for _, t := range plan.Tasks {
		switch t.Kind {
		case models.KindLibrary:
			cp = append(cp, b.abs(t.Path))
		case models.KindClient:
			client = b.abs(t.Path)
		}
	}
	return append(cp, client)
}

/**
 * Build the launch spec
 * @param {*VersionDescriptor} desc - Merged descriptor
 * @param {*DownloadPlan} plan - Plan whose files are verified on disk
 * @param {rules.Context} rctx - Platform, feature flags are added from opts
 * @param {Options} opts - User options
 * @returns {*LaunchSpec} A new spec, nil on any error
 * @description
 * - Every ${name} must have a substitution, otherwise MissingSubstitution
 * - opts.BaseJVMArgs come first, then the descriptor's JVM arguments
 */
func (b *Builder) Build(desc *models.VersionDescriptor, plan *models.DownloadPlan, rctx rules.Context, opts Options) (*models.LaunchSpec, error) {
	if desc == nil || plan == nil {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: errors.New("descriptor and plan are required")}
	}
	if desc.MainClass == "" {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, VersionID: desc.ID, Err: errors.New("descriptor has no main class")}
	}
	opts = opts.withDefaults()
	gameDir := opts.GameDir
	if gameDir == "" {
		gameDir = b.root
	}

	classpath := b.Classpath(desc, plan)
	table := b.substitutions(desc, opts, gameDir, classpath)

	flags := map[string]bool{
		rules.FeatureDemoUser:         opts.DemoUser,
		rules.FeatureCustomResolution: opts.Width > 0 && opts.Height > 0,
	}
	for k, v := range opts.Features {
		flags[k] = v
	}
	fctx := rctx.WithFeatures(flags)

	jvmTemplate := desc.JVMArguments()
	if jvmTemplate == nil || (desc.MinecraftArguments != "" && !mentions(jvmTemplate, "classpath")) {
		// 旧版父级加上只声明 jvm 参数的加载器子级，合并后仍缺少 -cp
		jvmTemplate = append(append([]models.Argument{}, legacyJVMArgs...), jvmTemplate...)
	}
	jvm, err := resolveArgs(desc.ID, jvmTemplate, fctx, table)
	if err != nil {
		return nil, err
	}
	game, err := resolveArgs(desc.ID, desc.GameArguments(), fctx, table)
	if err != nil {
		return nil, err
	}

	spec := &models.LaunchSpec{
		VersionID: desc.ID,
		JavaPath:  opts.JavaPath,
		MainClass: desc.MainClass,
		Classpath: classpath,
		JVMArgs:   append(append([]string{}, opts.BaseJVMArgs...), jvm...),
		GameArgs:  game,
		WorkDir:   gameDir,
	}
	if len(opts.Env) > 0 {
		spec.Env = make(map[string]string, len(opts.Env))
		for k, v := range opts.Env {
			spec.Env[k] = v
		}
	}
	return spec, nil
}

func (b *Builder) substitutions(desc *models.VersionDescriptor, opts Options, gameDir string, classpath []string) map[string]string {
	assetsRoot := filepath.Join(b.root, env.AssetsDir)
	assetID := desc.AssetIndexID()
	versionType := desc.Type
	if versionType == "" {
		versionType = "release"
	}
	table := map[string]string{
		"auth_player_name":    opts.PlayerName,
		"auth_uuid":           opts.PlayerUUID,
		"auth_access_token":   opts.AccessToken,
		"auth_session":        opts.AccessToken,
		"auth_xuid":           opts.XUID,
		"clientid":            opts.ClientID,
		"user_type":           opts.UserType,
		"user_properties":     "{}",
		"version_name":        desc.ID,
		"version_type":        versionType,
		"game_directory":      gameDir,
		"assets_root":         assetsRoot,
		"game_assets":         VirtualAssetsDir(b.root, assetID),
		"assets_index_name":   assetID,
		"natives_directory":   b.NativesDir(desc.ID),
		"library_directory":   filepath.Join(b.root, env.LibrariesDir),
		"classpath_separator": string(os.PathListSeparator),
		"classpath":           strings.Join(classpath, string(os.PathListSeparator)),
		"launcher_name":       b.launcherName,
		"launcher_version":    b.launcherVersion,
	}
	if opts.Width > 0 && opts.Height > 0 {
		table["resolution_width"] = strconv.Itoa(opts.Width)
		table["resolution_height"] = strconv.Itoa(opts.Height)
	}
	for k, v := range opts.Extra {
		table[k] = v
	}
	return table
}

func resolveArgs(versionID string, args []models.Argument, ctx rules.Context, table map[string]string) ([]string, error) {
	var out []string
	for _, a := range args {
		if !rules.Applies(a.Rules, ctx) {
			continue
		}
		for _, v := range a.Value {
			s, err := Substitute(v, table)
			if err != nil {
				if e, ok := err.(*errs.Error); ok {
					e.VersionID = versionID
				}
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// mentions reports whether any argument value, rules ignored, uses ${name}.
func mentions(args []models.Argument, name string) bool {
	token := "${" + name + "}"
	for _, a := range args {
		for _, v := range a.Value {
			if strings.Contains(v, token) {
				return true
			}
		}
	}
	return false
}

// Substitute replaces every ${name} in s from table. The first name without an
// entry, the empty name included, fails with MissingSubstitution.
func Substitute(s string, table map[string]string) (string, error) {
	var (
		missing string
		failed  bool
	)
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		v, ok := table[name]
		if !ok && !failed {
			missing, failed = name, true
		}
		return v
	})
	if failed {
		return "", &errs.Error{Code: errs.CodeMissingSubstitution, Placeholder: missing}
	}
	return out, nil
}
