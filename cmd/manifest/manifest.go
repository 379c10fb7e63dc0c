package manifest

import (
	"craft-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Version manifest operations (list/resolve/plan)",
	Long:  `Version manifest operations: list remote versions, show the merged descriptor of a version, show its download plan`,
}

const manifestExample = `  craft-keeper manifest list --type release --limit 10
  craft-keeper manifest resolve 1.20.4
  craft-keeper manifest resolve latest-release --json
  craft-keeper manifest plan 1.20.4 --os windows --arch x86_64`

func init() {
	root.RootCmd.AddCommand(manifestCmd)

	manifestCmd.Example = manifestExample
}
