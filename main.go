package main

import (
	"os"

	"github.com/hmorsi/coursewright/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
