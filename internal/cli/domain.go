package cli

import (
	"context"
	"fmt"

	"apicatalog/internal/model"
)

func newDomainCommand(app *App) *Command {
	return group(app, "domain", "List, add and delete registered domains",
		newDomainListCommand(app),
		newDomainAddCommand(app),
		newDomainDeleteCommand(app),
	)
}

func newDomainListCommand(app *App) *Command {
	cmd := leaf(app, "list", "List registered domains")
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		cat, notices := app.catalog()
		cat.Domains.Fetch(context.Background())
		if err := notices.err("fetch domains"); err != nil {
			return err
		}
		domains := cat.Domains.All()
		if *asJSON {
			return printJSON(app.Out, domains)
		}
		rows := make([][]string, 0, len(domains))
		for _, d := range domains {
			rows = append(rows, []string{d.ID.String(), d.URL})
		}
		if err := printTable(app.Out, []string{"ID", "URL"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "\nTotal: %d domains\n", len(domains))
		return nil
	}
	return cmd
}

func newDomainAddCommand(app *App) *Command {
	cmd := leaf(app, "add", "Register a domain: add <url>")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		url, err := firstArg(cmd.Flags, "domain url")
		if err != nil {
			return err
		}
		cat, _ := app.catalog()
		ctx := context.Background()
		cat.Domains.Fetch(ctx)
		if err := cat.Domains.Add(ctx, url); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Domain %s added (%d registered)\n", url, len(cat.Domains.All()))
		return nil
	}
	return cmd
}

func newDomainDeleteCommand(app *App) *Command {
	cmd := leaf(app, "delete", "Delete a domain: delete <id>")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		id, err := firstArg(cmd.Flags, "domain id")
		if err != nil {
			return err
		}
		cat, notices := app.catalog()
		cat.Domains.Delete(context.Background(), model.ID(id))
		if err := notices.err("delete domain"); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Domain %s deleted\n", id)
		return nil
	}
	return cmd
}
