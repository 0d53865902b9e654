package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/hookchat/internal/daemon"
	"github.com/matheus3301/hookchat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	console := flag.Bool("console", false, "also log to stderr")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{ProfileName: profileName, Console: *console}),
		fx.NopLogger,
	)

	app.Run()
}
