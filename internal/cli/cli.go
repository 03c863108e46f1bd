package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/labrecipe/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("labrecipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
labrecipe - Bakes a laboratory protocol and reports what it takes.

Usage:
  labrecipe [options] [PROTOCOL_PATH]

Arguments:
  PROTOCOL_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	protocolFlag := flagSet.String("protocol", "", "Path to the protocol file or directory.")
	pFlag := flagSet.String("p", "", "Path to the protocol file or directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to a TOML file overriding units and precisions.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	auditFlag := flagSet.String("audit-db", "", "DSN of the audit database (sqlite path or postgres:// URL). Empty disables auditing.")
	stageFlag := flagSet.String("stage", "all", "Stage whose instructions and substance usage are reported.")
	visualizeFlag := flagSet.String("visualize", "", "Name of a plate to print as a table.")
	modeFlag := flagSet.String("visualize-mode", "final", "Plate table mode. Options: 'final' or 'delta'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *protocolFlag != "" {
		path = *protocolFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Protocol path determined.", "path", path)

	if path == "" {
		slog.Debug("No protocol path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ProtocolPath:  path,
		EngineConfig:  *configFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		AuditDSN:      *auditFlag,
		Stage:         *stageFlag,
		Visualize:     *visualizeFlag,
		VisualizeMode: *modeFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
