package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
	"SteamGuard/internal/model"
	"SteamGuard/internal/service"
)

type linkCmd struct{}

func (linkCmd) Name() string        { return "link" }
func (linkCmd) Description() string { return "Link a new authenticator to the logged-in account" }
func (linkCmd) Usage() string       { return "link <session.json> [phone] [country]" }

// Run ведёт привязку целиком: AddAuthenticator, подтверждение почты, код из SMS и Finalize.
func (linkCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return ErrUsage
	}
	session, err := readSession(args[0])
	if err != nil {
		return err
	}

	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	in := bufio.NewReader(In)
	linker, err := service.NewLinker(service.LinkerOptions{
		API:              env.Client,
		Clock:            env.Aligner,
		Store:            env.Store,
		Session:          session,
		PhoneNumber:      argOrEmpty(args, 1),
		PhoneCountryCode: argOrEmpty(args, 2),
		EmailConfirmer: service.EmailConfirmerFunc(func(ctx context.Context, address string) error {
			fmt.Fprintf(Out, "A confirmation email was sent to %s.\n", address)
			_, err := prompt(in, "Open the link from the email, then press Enter: ")
			return err
		}),
		Policy: env.Policy,
		Logger: log,
	})
	if err != nil {
		return err
	}

	res, err := linker.AddAuthenticator(ctx)
	switch res {
	case service.LinkAwaitingFinalization:
		if err != nil {
			dumpRecord(linker.LinkedAccount())
			return err
		}
	case service.LinkMustProvidePhoneNumber:
		return errors.New("the account has no phone number: run link again with a phone number")
	case service.LinkAuthenticatorPresent:
		return errors.New("the account already has an authenticator, remove it first")
	default:
		if err == nil {
			err = fmt.Errorf("add authenticator: %s", res)
		}
		return err
	}

	rec := linker.LinkedAccount()
	fmt.Fprintf(Out, "Account record saved to %s\n", linker.Path())
	fmt.Fprintf(Out, "Revocation code: %s\n", rec.RevocationCode)
	fmt.Fprintln(Out, "Write the revocation code down: it is the only way to remove the authenticator without the device.")

	for {
		sms, err := prompt(in, "Enter the SMS code: ")
		if err != nil {
			return err
		}
		fres, err := linker.FinalizeAddAuthenticator(ctx, sms)
		switch fres {
		case service.FinalizeSuccess:
			if err != nil {
				return err
			}
			fmt.Fprintf(Out, "Authenticator linked to %s\n", rec.AccountName)
			return nil
		case service.FinalizeBadSMSCode:
			fmt.Fprintln(Out, "Wrong SMS code, try again.")
			continue
		case service.FinalizeUnableToGenerateCorrectCodes:
			return errors.New("server did not accept generated codes: check the system clock and link again")
		default:
			if err == nil {
				err = fmt.Errorf("finalize: %s", fres)
			}
			return fmt.Errorf("authenticator is not active, the saved record has not been finalized: %w", err)
		}
	}
}

func readSession(path string) (*model.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	if s.SteamID == 0 || s.AccessToken == "" {
		return nil, fmt.Errorf("session %s: SteamID and AccessToken required", path)
	}
	return &s, nil
}

// dumpRecord печатает запись, которую не удалось сохранить.
func dumpRecord(rec *model.AccountRecord) {
	if rec == nil {
		return
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(Out, "Could not save the account record. Save this manually:")
	fmt.Fprintln(Out, string(data))
}

func init() { RegisterCmd(linkCmd{}) }
