package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/fleetsync-io/fleetsync/cmd/fleetsyncd/app"
)

func main() {
	if err := app.NewApp().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
