package instance

import (
	"fmt"

	"craft-keeper/services"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an instance and its game directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := services.GetInstanceManager().Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("instance '%s' removed\n", args[0])
		return nil
	},
}

func init() {
	instanceCmd.AddCommand(removeCmd)
}
