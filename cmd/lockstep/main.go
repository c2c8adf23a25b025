// Command lockstep records, replays and hosts deterministic lockstep games.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/lockstep/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lockstep:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
