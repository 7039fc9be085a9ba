// Command jobtracker runs the job application tracking HTTP service.
package main

import (
	"fmt"

	"github.com/patric-chuzhbe/jobtracker/internal/app"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func printBuildInfo() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

func main() {
	printBuildInfo()

	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorw("application stopped with error", "err", err)
	}
}
