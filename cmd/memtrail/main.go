package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memtrail [command]",
	Short: "memtrail: job-level memory profiler",
	Long:  `memtrail launches a command, samples the resident memory of the whole process tree it spawns, and reports peak usage per process and for the job as a whole.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
