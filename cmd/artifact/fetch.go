package artifact

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/spf13/cobra"
)

var fetchQuiet bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <version>",
	Short: "Download and verify all files of a version",
	Long:  "Download every file of a version into the cache. Files already verified are skipped; Ctrl+C stops the download and keeps what was verified",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return fetchVersion(ctx, args[0])
	},
}

/**
 * Install a version with a terminal progress display
 * @param {context.Context} ctx - Cancelled on interrupt
 * @param {string} id - Version id or alias
 * @returns {error} Resolution, planning or incomplete download error
 */
func fetchVersion(ctx context.Context, id string) error {
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	inst, err := svc.Plan(ctx, id)
	if err != nil {
		return err
	}
	if fetchQuiet {
		err = svc.Download(ctx, inst.Plan, nil)
	} else {
		reporter := utils.NewDownloadReporter(os.Stdout, inst.Plan)
		reporter.Start()
		err = svc.Download(ctx, inst.Plan, reporter.Handle)
		reporter.Stop()
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d files, %s verified\n", inst.Plan.VersionID, len(inst.Plan.Tasks), utils.FormatBytes(inst.Plan.TotalSize()))
	return nil
}

func init() {
	fetchCmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "不显示进度")
	artifactCmd.AddCommand(fetchCmd)
}
