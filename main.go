package main

import (
	"fmt"
	"os"

	_ "craft-keeper/cmd"
	"craft-keeper/cmd/root"
	"craft-keeper/internal/env"
	"craft-keeper/internal/logger"
)

func main() {
	// 检查是否是服务器模式
	env.Daemon = len(os.Args) > 1 && os.Args[1] == "server"

	if err := root.RootCmd.Execute(); err != nil {
		logger.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
