package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/wamd/internal/daemon"
	"github.com/matheus3301/wamd/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	accountFlag := flag.String("account", "", "account JID to serve (overrides config)")
	phoneFlag := flag.String("pair-phone", "", "pair with a one-time code for this phone number instead of a QR code")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			Account:     *accountFlag,
			PairPhone:   *phoneFlag,
		}),
	)

	app.Run()
}
