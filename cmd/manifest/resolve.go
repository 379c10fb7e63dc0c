package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"craft-keeper/internal/models"
	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <version>",
	Short: "Show the merged descriptor of a version",
	Long:  "Resolve a version and its inheritance chain and show the merged descriptor. latest-release and latest-snapshot are accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveVersion(cmd.Context(), args[0])
	},
}

func resolveVersion(ctx context.Context, id string) error {
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	desc, err := svc.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}
	printDescriptor(desc)
	return nil
}

func printDescriptor(desc *models.VersionDescriptor) {
	summary := orderedmap.New()
	summary.Set("id", desc.ID)
	summary.Set("type", desc.Type)
	summary.Set("mainClass", desc.MainClass)
	summary.Set("assets", desc.AssetIndexID())
	if desc.JavaVersion != nil {
		summary.Set("java", desc.JavaVersion.MajorVersion)
	}
	summary.Set("libraries", len(desc.Libraries))
	summary.Set("legacyArgs", desc.MinecraftArguments != "")
	utils.PrintFormat([]*orderedmap.OrderedMap{summary})
	fmt.Println()

	var dataList []*orderedmap.OrderedMap
	for _, lib := range desc.Libraries {
		row := orderedmap.New()
		row.Set("library", lib.Identity())
		row.Set("rules", len(lib.Rules))
		row.Set("natives", len(lib.Natives) > 0)
		dataList = append(dataList, row)
	}
	if len(dataList) > 0 {
		utils.PrintFormat(dataList)
	}
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "输出JSON格式的描述")
	manifestCmd.AddCommand(resolveCmd)
}
