package main

import (
	"fmt"
	"os"

	"github.com/allaspectsdev/traduko/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "translate":
		cmdTranslate(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "pool":
		cmdPool()
	case "stats":
		cmdStats()
	case "keys":
		cmdKeys(os.Args[2:])
	case "init-config":
		cmdInitConfig()
	case "version":
		fmt.Println(version.String())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: traduko <command> [options]

Commands:
  translate    Translate text (from args or stdin)
  serve        Run the dispatcher with the diagnostics API
  pool         Show the configured instance pool
  stats        Show per-instance statistics from the history store
  keys         Manage provider credentials (list|set|delete <provider>)
  init-config  Generate default config file
  version      Print version information
  help         Show this help message

Translate options:
  --from <lang>    Source language code (default: auto-detect)
  --to <lang>      Target language code (default: sr)
  --hint <text>    Context hint passed to the model
  --config <path>  Config file path

Serve options:
  --foreground     Log to stdout as well as the log file
  --config <path>  Config file path`)
}
