package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "hexsim",
		Short: "hexsim process execution engine",
		Long:  "Runs the hacking-simulation process engine: resource-bounded player operations with queueing, scheduling and exactly-once completion effects.",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newDemoCmd())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
