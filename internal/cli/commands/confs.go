package commands

import (
	"context"
	"fmt"
	"strings"

	"SteamGuard/internal/cli/bootstrap"
	"SteamGuard/internal/config"
	"SteamGuard/internal/model"
	"SteamGuard/internal/service"
)

type confsCmd struct{}

func (confsCmd) Name() string        { return "confs" }
func (confsCmd) Description() string { return "List pending confirmations" }
func (confsCmd) Usage() string       { return "confs [account]" }

func (confsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	env, err := bootstrap.Open(cfg, log)
	if err != nil {
		return err
	}
	defer env.Close()

	rec, key, err := bootstrap.ResolveAccount(ctx, env.Store, argOrEmpty(args, 0))
	if err != nil {
		return err
	}
	items, err := newConfirmations(env, key).Fetch(ctx, rec)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(Out, "no pending confirmations")
		return nil
	}
	for _, c := range items {
		fmt.Fprintf(Out, "%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Created().Format("2006-01-02 15:04"), c.Description())
	}
	return nil
}

// respondCmd — accept и deny: одна или несколько операций из текущей очереди.
type respondCmd struct {
	name  string
	allow bool
}

func (c respondCmd) Name() string { return c.name }

func (c respondCmd) Description() string {
	if c.allow {
		return "Accept confirmations by id"
	}
	return "Deny confirmations by id"
}

func (c respondCmd) Usage() string { return c.name + " <account> <id...|all>" }

func (c respondCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
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
	mgr := newConfirmations(env, key)
	queue, err := mgr.Fetch(ctx, rec)
	if err != nil {
		return err
	}
	picked, err := pick(queue, args[1:])
	if err != nil {
		return err
	}

	var ok bool
	switch {
	case len(picked) == 1 && c.allow:
		ok, err = mgr.Accept(ctx, rec, picked[0])
	case len(picked) == 1:
		ok, err = mgr.Deny(ctx, rec, picked[0])
	case c.allow:
		ok, err = mgr.AcceptMultiple(ctx, rec, picked)
	default:
		ok, err = mgr.DenyMultiple(ctx, rec, picked)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("server refused to %s %d confirmation(s): refresh the list and try again", c.name, len(picked))
	}
	fmt.Fprintf(Out, "%s: %d confirmation(s)\n", pastTense(c.allow), len(picked))
	return nil
}

func pastTense(allow bool) string {
	if allow {
		return "accepted"
	}
	return "denied"
}

// pick выбирает подтверждения по id; "all" — вся очередь.
func pick(queue []model.Confirmation, ids []string) ([]model.Confirmation, error) {
	if len(ids) == 1 && strings.EqualFold(ids[0], "all") {
		return queue, nil
	}
	byID := make(map[string]model.Confirmation, len(queue))
	for _, c := range queue {
		byID[c.ID] = c
	}
	out := make([]model.Confirmation, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("confirmation %s not in the pending list", id)
		}
		out = append(out, c)
	}
	return out, nil
}

func newConfirmations(env *bootstrap.Env, key string) *service.Confirmations {
	refresher := service.NewSessionRefresher(env.Client, env.Store, env.Log)
	refresher.PathFor = func(*model.AccountRecord) string { return key }
	return service.NewConfirmations(service.ConfirmationsOptions{
		API:      env.Client,
		Clock:    env.Aligner,
		Policy:   env.Policy,
		Logger:   env.Log,
		Sessions: refresher,
	})
}

func init() {
	RegisterCmd(confsCmd{})
	RegisterCmd(respondCmd{name: "accept", allow: true})
	RegisterCmd(respondCmd{name: "deny"})
}
