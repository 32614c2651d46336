package cli

import (
	"context"
	"flag"
	"fmt"

	"apicatalog/internal/model"
)

func newRestApiCommand(app *App) *Command {
	return group(app, "restapi", "Manage database connection profiles",
		newRestApiListCommand(app),
		newRestApiAddCommand(app),
		newRestApiDeleteCommand(app),
	)
}

// connFlags binds the connection form. The project name is only used when
// saving a profile.
func connFlags(fs *flag.FlagSet, in *model.RestApiInput, withProject bool) {
	if withProject {
		fs.StringVar(&in.ProjectName, "project", "", "Project name")
	}
	fs.StringVar(&in.Engine, "engine", "", "Database engine (MySQL, PostgreSQL, SQLite, SQLServer)")
	fs.StringVar(&in.IP, "ip", "", "Database host")
	fs.StringVar(&in.Port, "port", "", "Database port (default: engine default)")
	fs.StringVar(&in.Username, "username", "", "Database user")
	fs.StringVar(&in.Password, "password", "", "Database password")
	fs.StringVar(&in.DatabaseName, "database", "", "Database name, or file path for SQLite")
}

func portString(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func newRestApiListCommand(app *App) *Command {
	cmd := leaf(app, "list", "List connection profiles")
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		cat, notices := app.catalog()
		cat.RestApis.Fetch(context.Background())
		if err := notices.err("fetch connections"); err != nil {
			return err
		}
		conns := cat.RestApis.All()
		if *asJSON {
			return printJSON(app.Out, conns)
		}
		rows := make([][]string, 0, len(conns))
		for _, c := range conns {
			rows = append(rows, []string{c.ID.String(), c.ProjectName, c.Engine, c.IP, portString(c.Port), c.Username, c.DatabaseName})
		}
		if err := printTable(app.Out, []string{"ID", "PROJECT", "ENGINE", "HOST", "PORT", "USER", "DATABASE"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "\nTotal: %d connections\n", len(conns))
		return nil
	}
	return cmd
}

func newRestApiAddCommand(app *App) *Command {
	cmd := leaf(app, "add", "Save a connection profile")
	var in model.RestApiInput
	connFlags(cmd.Flags, &in, true)
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		cat, _ := app.catalog()
		created, err := cat.RestApis.Add(context.Background(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Connection %s saved with id %s\n", created.ProjectName, created.ID)
		return nil
	}
	return cmd
}

func newRestApiDeleteCommand(app *App) *Command {
	cmd := leaf(app, "delete", "Delete a connection profile: delete <id>")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		id, err := firstArg(cmd.Flags, "connection id")
		if err != nil {
			return err
		}
		cat, notices := app.catalog()
		cat.RestApis.Delete(context.Background(), model.ID(id))
		if err := notices.err("delete connection"); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Connection %s deleted\n", id)
		return nil
	}
	return cmd
}
