package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"SteamGuard/internal/config"
	"SteamGuard/internal/errs"
)

// Dispatch is the single entry point to execute CLI commands.
// It prints help and usage messages and returns a process exit code.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	// If user passed global --help after flags parsing, show global usage
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	name := strings.ToLower(args[0])
	if name == "help" { // steamguard help [command]
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
		if c, ok := Get(args[1]); ok {
			fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
			return 0
		}
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[1])
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return 2
	default:
		fmt.Fprintf(Out, "%s error: %v\n", name, err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(Out, hint)
		}
		log.Debugw("command failed", "command", name, "error", err)
		return 1
	}
}

// hintFor подсказывает следующее действие для типовых ошибок.
func hintFor(err error) string {
	switch {
	case errors.Is(err, errs.ErrRecordNotPersisted):
		return "The account record was NOT saved. Keep the printed record: without it the account cannot be recovered."
	case errors.Is(err, errs.ErrAuthorization):
		return "The session was rejected: check the system clock or log in again to refresh the session."
	case errors.Is(err, errs.ErrNetwork):
		return "Network problem: try again later."
	case errors.Is(err, errs.ErrNotFound):
		return "Use the accounts command to list stored accounts."
	default:
		return ""
	}
}
