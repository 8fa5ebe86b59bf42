package main

import (
	"fmt"
	"os"

	"github.com/myorg/cyclesim/cyclesim/internal/config"
)

func loadProgramConfig(path string) (*config.ProgramConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	return config.LoadFile(path)
}

func logProgress(quiet bool, format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
