package main

import (
	"fmt"
	"os"

	"github.com/pthm/webcmp/lib/generator"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "generate":
		if err := runGenerate(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "clean":
		if err := runClean(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("webcmp version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`webcmp - reactive server-rendered components for Go

Usage:
  webcmp <command> [arguments]

Commands:
  serve                 Serve the components declared in a manifest
  generate [packages]   Generate state codecs (e.g., ./... or ./components/...)
  clean [packages]      Remove generated files (webcmp_gen.go)
  version               Print version
  help                  Show this help

Options for generate:
  --dry-run             Show what would be generated without writing files

Environment for serve:
  WEBCMP_KEY            State encryption key (required)
  WEBCMP_ADDR           Listen address (default :8080)
  WEBCMP_MANIFEST       Component manifest (default webcmp.yaml)
  WEBCMP_PREFIX         Component route prefix (default /_c/)
  WEBCMP_OTEL_ENDPOINT  OTLP/HTTP endpoint for render traces

Examples:
  WEBCMP_KEY=secret webcmp serve          Serve webcmp.yaml on :8080
  webcmp generate ./...                   Generate for all packages
  webcmp generate --dry-run ./...         Preview generation
  webcmp clean ./...                      Remove all generated files`)
}

func runGenerate(args []string) error {
	var dryRun bool
	var patterns []string

	for _, arg := range args {
		if arg == "--dry-run" {
			dryRun = true
		} else {
			patterns = append(patterns, arg)
		}
	}

	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	gen := generator.New(generator.Options{
		DryRun: dryRun,
	})

	return gen.Generate(patterns...)
}

func runClean(args []string) error {
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	gen := generator.New(generator.Options{})
	return gen.Clean(patterns...)
}
