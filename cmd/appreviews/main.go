package main

import (
	"os"

	"github.com/sorenmh/appreviews/internal/appreviews/cmd"
	"github.com/sorenmh/appreviews/internal/appreviews/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		output.Error(os.Stderr, err.Error())
		os.Exit(1)
	}
}
