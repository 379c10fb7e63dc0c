package artifact

import (
	"craft-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Game file operations (fetch/verify/cache)",
	Long:  `Game file operations: download the files of a version, re-verify them, inspect the verified file index`,
}

const artifactExample = `  craft-keeper artifact fetch 1.20.4
  craft-keeper artifact verify 1.20.4
  craft-keeper artifact cache --compact
  craft-keeper artifact cache --forget libraries/com/example/lib/1.0/lib-1.0.jar`

func init() {
	root.RootCmd.AddCommand(artifactCmd)

	artifactCmd.Example = artifactExample
}
