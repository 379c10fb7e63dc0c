package manifest

import (
	"context"
	"fmt"

	"craft-keeper/internal/models"
	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	planOS   string
	planArch string
	planKind string
)

var planCmd = &cobra.Command{
	Use:   "plan <version>",
	Short: "Show the download plan of a version",
	Long:  "Show every file a version needs on this platform. --os and --arch evaluate the rules for another platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan(cmd.Context(), args[0])
	},
}

/**
 *	Fields displayed in list format
 */
type Task_Columns struct {
	Kind     string `json:"kind"`
	Identity string `json:"identity"`
	Path     string `json:"path"`
	Size     string `json:"size"`
}

func showPlan(ctx context.Context, id string) error {
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	rctx := svc.RuleContext()
	if planOS != "" {
		rctx.OS = planOS
		rctx.OSVersion = ""
	}
	if planArch != "" {
		rctx.Arch = planArch
	}
	svc.SetRuleContext(rctx)

	inst, err := svc.Plan(ctx, id)
	if err != nil {
		return err
	}
	tasks := inst.Plan.Tasks
	if planKind != "" {
		tasks = inst.Plan.ByKind(models.ArtifactKind(planKind))
	}

	var dataList []*orderedmap.OrderedMap
	for _, t := range tasks {
		identity := t.Identity
		if t.Kind == models.KindAsset && len(identity) > 12 {
			identity = identity[:12]
		}
		recordMap, _ := utils.StructToOrderedMap(Task_Columns{
			Kind:     string(t.Kind),
			Identity: identity,
			Path:     t.Path,
			Size:     utils.FormatBytes(t.Size),
		})
		dataList = append(dataList, recordMap)
	}
	if len(dataList) > 0 {
		utils.PrintFormat(dataList)
	}
	fmt.Printf("%s (%s/%s): %d files, %s\n", inst.Plan.VersionID, rctx.OS, rctx.Arch,
		len(inst.Plan.Tasks), utils.FormatBytes(inst.Plan.TotalSize()))
	return nil
}

func init() {
	planCmd.Flags().SortFlags = false
	planCmd.Flags().StringVar(&planOS, "os", "", "目标系统(windows/osx/linux)")
	planCmd.Flags().StringVar(&planArch, "arch", "", "目标架构(x86/x86_64/arm64/arm32)")
	planCmd.Flags().StringVarP(&planKind, "kind", "k", "", "只显示一种文件(library/native/client/asset/asset-index)")
	manifestCmd.AddCommand(planCmd)
}
