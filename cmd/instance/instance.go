package instance

import (
	"craft-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Instance operations (list/create/remove)",
	Long:  `Instance operations. An instance is a named game directory bound to a version with its own window and java settings`,
}

const instanceExample = `  craft-keeper instance list
  craft-keeper instance create survival --version 1.20.4 --max-memory 4G
  craft-keeper instance remove survival
  craft-keeper launch --instance survival`

func init() {
	root.RootCmd.AddCommand(instanceCmd)

	instanceCmd.Example = instanceExample
}
