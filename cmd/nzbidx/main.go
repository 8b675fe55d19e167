package main

import (
	"os"

	"github.com/go-while/go-nzbidx/internal/cli"
)

// appVersion is set at build time via ldflags
var appVersion = "-unset-"

func main() {
	cli.AppVersion = appVersion
	os.Exit(cli.Execute())
}
