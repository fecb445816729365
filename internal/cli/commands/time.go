package commands

import (
	"context"
	"fmt"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
)

type timeCmd struct{}

func (timeCmd) Name() string        { return "time" }
func (timeCmd) Description() string { return "Sync with the server clock and print the offset" }
func (timeCmd) Usage() string       { return "time" }

func (timeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Aligner.Sync(ctx); err != nil {
		return err
	}
	fmt.Fprintf(Out, "server time: %d\n", env.Aligner.Now(ctx))
	fmt.Fprintf(Out, "offset: %ds\n", env.Aligner.Offset())
	return nil
}

func init() { RegisterCmd(timeCmd{}) }
