package instance

import (
	"fmt"

	"craft-keeper/internal/utils"
	"craft-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listInstances(services.GetInstanceManager())
	},
}

/**
 *	Fields displayed in list format
 */
type Instance_Columns struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Window  string `json:"window"`
	Memory  string `json:"memory"`
	Java    string `json:"java"`
}

func listInstances(im *services.InstanceManager) error {
	list, err := im.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No instances found")
		return nil
	}
	var dataList []*orderedmap.OrderedMap
	for _, inst := range list {
		row := Instance_Columns{
			Name:    inst.Name,
			Version: inst.Version,
			Java:    inst.Java.Path,
		}
		if inst.Window.Width > 0 && inst.Window.Height > 0 {
			row.Window = fmt.Sprintf("%dx%d", inst.Window.Width, inst.Window.Height)
		}
		if inst.Window.StartMaximized {
			row.Window = "maximized"
		}
		if inst.Java.MinMemory != "" || inst.Java.MaxMemory != "" {
			row.Memory = fmt.Sprintf("%s/%s", inst.Java.MinMemory, inst.Java.MaxMemory)
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	instanceCmd.AddCommand(listCmd)
}
