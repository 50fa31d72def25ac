package config

import (
	"flag"
	"os"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server (default from Config)
//	-q int      quiescence interval in milliseconds (default from Config)
//	-d string   path of the local draft database (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-q", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the backend server")
	fs.StringVar(&cfg.DraftDBPath, "d", cfg.DraftDBPath, "path of the local draft database")
	quiescenceMs := fs.Int("q", int(cfg.QuiescenceInterval.Milliseconds()), "quiescence interval (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.QuiescenceInterval = time.Duration(*quiescenceMs) * time.Millisecond
}
