package main

import (
	"context"
	"os"

	"coursepilot/cmd/coursepilot/commands"
	"coursepilot/pkg/osutil"
)

func main() {
	ctx := osutil.SignalContext(context.Background())
	os.Exit(commands.ExecuteContext(ctx))
}
