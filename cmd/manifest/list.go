package manifest

import (
	"context"
	"fmt"
	"time"

	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	listType  string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listVersions(cmd.Context())
	},
}

/**
 *	Fields displayed in list format
 */
type Version_Columns struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ReleaseTime string `json:"releaseTime"`
	Latest      string `json:"latest"`
}

/**
 * List remote versions newest first
 * @param {context.Context} ctx - Command context
 * @returns {error} Returns error if the version list cannot be fetched
 */
func listVersions(ctx context.Context) error {
	svc, err := services.NewDefaultLauncherService()
	if err != nil {
		return err
	}
	defer svc.Close()

	list, err := svc.Versions(ctx)
	if err != nil {
		return err
	}
	entries := list.Filter(listType)
	if listLimit > 0 && len(entries) > listLimit {
		entries = entries[:listLimit]
	}
	if len(entries) == 0 {
		fmt.Println("No versions found")
		return nil
	}

	var dataList []*orderedmap.OrderedMap
	for _, e := range entries {
		row := Version_Columns{ID: e.ID, Type: e.Type}
		if !e.ReleaseTime.IsZero() {
			row.ReleaseTime = e.ReleaseTime.Format(time.DateOnly)
		}
		switch e.ID {
		case list.Latest.Release:
			row.Latest = "release"
		case list.Latest.Snapshot:
			row.Latest = "snapshot"
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	listCmd.Flags().SortFlags = false
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "版本类型(release/snapshot/old_beta/old_alpha)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "最多显示的条数，0 显示全部")
	manifestCmd.AddCommand(listCmd)
}
