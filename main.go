package main

import (
	"os"

	"github.com/yw35561-wq/Mic-Scheduler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
