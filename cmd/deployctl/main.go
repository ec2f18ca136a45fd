// Command deployctl automates the deploy cycle for a Python web app:
// snapshot the tree, sync to the remote branch, refresh the
// environment, restart services, and prune old snapshots.
package main

import (
	"os"

	"deployctl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
