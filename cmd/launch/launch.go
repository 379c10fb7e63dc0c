package launch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"craft-keeper/cmd/root"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/launch"
	"craft-keeper/internal/proc"
	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/spf13/cobra"
)

var (
	instanceName string
	playerName   string
	accessToken  string
	javaPath     string
	gameDir      string
	width        int
	height       int
	demo         bool
	quickPlay    string
	dryRun       bool
	quiet        bool
)

var launchCmd = &cobra.Command{
	Use:   "launch [version]",
	Short: "Install a version and start the game",
	Long: `Install a version (or the version of an instance), build the command line and start the game.
The game output is streamed to the terminal; Ctrl+C stops the game.
A version whose download is incomplete is never started.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		version := ""
		if len(args) > 0 {
			version = args[0]
		}
		return runLaunch(ctx, version)
	},
}

const launchExample = `  craft-keeper launch 1.20.4 --player Steve
  craft-keeper launch --instance survival
  craft-keeper launch latest-release --quick-play mc.example.org:25565
  craft-keeper launch 1.8.9 --dry-run`

func options() launch.Options {
	opts := launch.Options{
		PlayerName:  playerName,
		AccessToken: accessToken,
		JavaPath:    javaPath,
		GameDir:     gameDir,
		Width:       width,
		Height:      height,
		DemoUser:    demo,
	}
	if quickPlay != "" {
		opts.Features = map[string]bool{"is_quick_play_multiplayer": true}
		opts.Extra = map[string]string{"quickPlayMultiplayer": quickPlay}
	}
	return opts
}

/**
 * Install, prepare and run the game in the foreground
 * @param {context.Context} ctx - Cancelled on interrupt, stops the game
 * @param {string} version - Version id, ignored when --instance is set
 * @returns {error} Install or launch error, or the game's non-zero exit
 */
func runLaunch(ctx context.Context, version string) error {
	if version == "" && instanceName == "" {
		return &errs.Error{Code: errs.CodeInvalidInput, Err: fmt.Errorf("a version or --instance is required")}
	}
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	req := services.LaunchRequest{Instance: instanceName, Version: version, Options: options()}
	if instanceName != "" {
		inst, err := svc.Instances().Get(instanceName)
		if err != nil {
			return err
		}
		version = inst.Version
	}
	if !quiet {
		if err := fetch(ctx, svc, version); err != nil {
			return err
		}
	}

	if dryRun {
		spec, err := svc.Prepare(ctx, req, nil)
		if err != nil {
			return err
		}
		fmt.Printf("cd %s\n%s %s\n", spec.WorkDir, spec.JavaPath, strings.Join(spec.Args(), " "))
		return nil
	}

	gp, err := svc.Launch(ctx, req, nil)
	if err != nil {
		return err
	}
	fmt.Printf("%s started (PID: %d)\n", gp.Title, gp.Pid())
	for line := range gp.Output() {
		if line.Stream == proc.StreamStderr {
			fmt.Fprintln(os.Stderr, line.Text)
		} else {
			fmt.Println(line.Text)
		}
	}
	code, err := gp.Wait()
	if err != nil {
		return err
	}
	detail := gp.Detail()
	fmt.Printf("%s %s (exit code %d)\n", gp.Title, detail.Status, code)
	if code != 0 && ctx.Err() == nil {
		return fmt.Errorf("game exited with code %d", code)
	}
	return nil
}

// fetch installs with a progress display before the launch, which then finds every file verified.
func fetch(ctx context.Context, svc *services.LauncherService, version string) error {
	inst, err := svc.Plan(ctx, version)
	if err != nil {
		return err
	}
	reporter := utils.NewDownloadReporter(os.Stdout, inst.Plan)
	reporter.Start()
	err = svc.Download(ctx, inst.Plan, reporter.Handle)
	reporter.Stop()
	return err
}

func init() {
	launchCmd.Flags().SortFlags = false
	launchCmd.Flags().StringVarP(&instanceName, "instance", "i", "", "启动的实例")
	launchCmd.Flags().StringVarP(&playerName, "player", "p", "", "玩家名")
	launchCmd.Flags().StringVar(&accessToken, "access-token", "", "会话令牌，离线模式留空")
	launchCmd.Flags().StringVar(&javaPath, "java", "", "Java可执行文件")
	launchCmd.Flags().StringVar(&gameDir, "game-dir", "", "游戏目录，默认为缓存根目录")
	launchCmd.Flags().IntVar(&width, "width", 0, "窗口宽度")
	launchCmd.Flags().IntVar(&height, "height", 0, "窗口高度")
	launchCmd.Flags().BoolVar(&demo, "demo", false, "以试玩模式启动")
	launchCmd.Flags().StringVar(&quickPlay, "quick-play", "", "启动后直接进入的服务器地址")
	launchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只打印命令行，不启动")
	launchCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不显示下载进度")
	root.RootCmd.AddCommand(launchCmd)

	launchCmd.Example = launchExample
}
