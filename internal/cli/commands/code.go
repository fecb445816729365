package commands

import (
	"context"
	"fmt"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
	"SteamGuard/internal/service"
)

type codeCmd struct{}

func (codeCmd) Name() string        { return "code" }
func (codeCmd) Description() string { return "Print the current login code" }
func (codeCmd) Usage() string       { return "code [account]" }

func (codeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	rec, _, err := bootstrap.ResolveAccount(ctx, env.Store, argOrEmpty(args, 0))
	if err != nil {
		return err
	}
	code, remaining, err := service.CurrentCode(ctx, env.Aligner, rec)
	if err != nil {
		return err
	}
	if env.Aligner.Degraded() {
		fmt.Fprintln(Out, "warning: server time unavailable, code is based on the local clock")
	}
	fmt.Fprintf(Out, "%s (valid %ds)\n", code, remaining)
	return nil
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func init() { RegisterCmd(codeCmd{}) }
