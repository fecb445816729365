package commands

import (
	"context"
	"fmt"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
)

type accountsCmd struct{}

func (accountsCmd) Name() string        { return "accounts" }
func (accountsCmd) Description() string { return "List stored account records" }
func (accountsCmd) Usage() string       { return "accounts" }

func (accountsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	keys, err := env.Store.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(Out, "no accounts")
		return nil
	}
	for _, key := range keys {
		rec, err := env.Store.Load(ctx, key)
		if err != nil {
			fmt.Fprintf(Out, "%s\tunreadable: %v\n", key, err)
			continue
		}
		status := "pending"
		if rec.FullyEnrolled {
			status = "enrolled"
		}
		fmt.Fprintf(Out, "%s\t%s\t%d\t%s\n", key, rec.AccountName, rec.SteamID(), status)
	}
	return nil
}

func init() { RegisterCmd(accountsCmd{}) }
