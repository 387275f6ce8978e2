// Command hazardctl loads dataset bundles into the hazard store and queries
// curves from the command line.
package main

import (
	"context"
	"os"
)

func main() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
