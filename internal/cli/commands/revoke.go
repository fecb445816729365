package commands

import (
	"bufio"
	"context"
	"fmt"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
	"SteamGuard/internal/service"
)

type revokeCmd struct{}

func (revokeCmd) Name() string        { return "revoke" }
func (revokeCmd) Description() string { return "Remove the authenticator using the revocation code" }
func (revokeCmd) Usage() string       { return "revoke <account> [email|none]" }

func (revokeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	scheme := service.SchemeEmail
	switch argOrEmpty(args, 1) {
	case "", "email":
	case "none":
		scheme = service.SchemeNone
	default:
		return ErrUsage
	}

	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	rec, key, err := bootstrap.ResolveAccount(ctx, env.Store, args[0])
	if err != nil {
		return err
	}
	answer, err := prompt(bufio.NewReader(In), fmt.Sprintf("Type %q to remove the authenticator: ", rec.AccountName))
	if err != nil {
		return err
	}
	if answer != rec.AccountName {
		fmt.Fprintln(Out, "aborted")
		return nil
	}

	resp, err := service.RemoveAuthenticator(ctx, env.Client, rec, scheme)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("revocation code rejected, %d attempt(s) remaining", resp.RevocationAttemptsRemaining)
	}
	fmt.Fprintf(Out, "Authenticator removed. The local record %s is kept.\n", key)
	return nil
}

func init() { RegisterCmd(revokeCmd{}) }
