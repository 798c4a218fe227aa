// Command loginsrv runs the login server.
package main

import (
	"fmt"
	"os"

	"loginsrv/cmd/loginsrv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
