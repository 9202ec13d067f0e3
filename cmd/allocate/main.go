package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/spf13/afero"

	"github.com/eugenenazirov/node-allocator/internal/application"
	"github.com/eugenenazirov/node-allocator/internal/config"
	"github.com/eugenenazirov/node-allocator/internal/logging"
	"github.com/eugenenazirov/node-allocator/internal/output"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, afero.NewOsFs()))
}

// run parses args, allocates and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, fs afero.Fs) int {
	exitCode := -1
	kingpinApp := kingpin.New("allocate", "Node Allocator - places files on storage nodes, keeping node loads close to the mean file size per node").
		UsageWriter(stdout).
		ErrorWriter(stderr).
		Terminate(func(code int) {
			if exitCode < 0 {
				exitCode = code
			}
		})
	kingpinApp.HelpFlag.Short('h')

	files := kingpinApp.Flag("files", "File list: one \"<name> <size>\" per line").Short('f').Required().String()
	nodes := kingpinApp.Flag("nodes", "Node list: one \"<name> <capacity>\" per line").Short('n').Required().String()
	outFile := kingpinApp.Flag("output", "Result file (default: standard output)").Short('o').String()
	format := kingpinApp.Flag("format", fmt.Sprintf("Result format (%s)", strings.Join(output.Formats(), ", "))).String()
	unassignedLabel := kingpinApp.Flag("unassigned-label", "Node name printed for files that could not be placed").String()
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	_, err := kingpinApp.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		kingpinApp.Errorf("%s, try --help", err)
		return 1
	}

	cfg, err := config.LoadFs(fs, &config.CLIOverrides{
		ConfigFile:      *configFile,
		ItemsFile:       files,
		NodesFile:       nodes,
		OutputFile:      outFile,
		OutputFormat:    format,
		UnassignedLabel: unassignedLabel,
		LogLevel:        logLevel,
	})
	if err != nil {
		kingpinApp.Errorf("failed to load configuration: %s", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		kingpinApp.Errorf("failed to initialize logger: %s", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := application.RunBatch(cfg, fs, stdout, logger); err != nil {
		kingpinApp.Errorf("%s", err)
		return 1
	}
	return 0
}
