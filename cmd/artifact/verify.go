package artifact

import (
	"context"
	"fmt"

	"craft-keeper/internal/errs"
	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <version>",
	Short: "Re-verify the installed files of a version",
	Long:  "Re-hash every file a version needs. Corrupt files are removed so the next fetch downloads them again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyVersion(cmd.Context(), args[0])
	},
}

type Failure_Columns struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func verifyVersion(ctx context.Context, id string) error {
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	failures, err := svc.Verify(ctx, id)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Printf("%s: all files verified\n", id)
		return nil
	}
	var dataList []*orderedmap.OrderedMap
	for _, f := range failures {
		recordMap, _ := utils.StructToOrderedMap(Failure_Columns{
			Kind:   string(f.Task.Kind),
			Path:   f.Task.Path,
			Reason: string(f.Err.Code),
		})
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
	return &errs.Error{Code: errs.CodeIncompleteDownload, VersionID: id,
		Err: fmt.Errorf("%d of the files are missing or corrupt", len(failures))}
}

func init() {
	artifactCmd.AddCommand(verifyCmd)
}
