// # cmd/wlscope/main.go
package main

import (
	"os"

	"wlscope/internal/ui/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
