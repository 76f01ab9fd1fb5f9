package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/vaultdrop/internal/flagx"
)

// Flags lists the short flags owned by the client config, so the CLI can
// accept them alongside its own.
var Flags = []string{"-a", "-d", "-j", "-t"}

// parseFlags populates Config fields from command-line flags. Only the flags
// in Flags are looked at; everything else in os.Args is left to the CLI.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], Flags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local history database")
	fs.IntVar(&cfg.UploadConcurrency, "j", cfg.UploadConcurrency, "parallel uploads")
	fs.DurationVar(&cfg.TransferTimeout, "t", cfg.TransferTimeout, "per object transfer timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
