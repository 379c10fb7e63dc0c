package cmd

import (
	_ "craft-keeper/cmd/artifact"
	_ "craft-keeper/cmd/instance"
	_ "craft-keeper/cmd/launch"
	_ "craft-keeper/cmd/manifest"
	_ "craft-keeper/cmd/metrics"
	_ "craft-keeper/cmd/root"
	_ "craft-keeper/cmd/server"
)
