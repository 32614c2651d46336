package cli

import (
	"context"
	"fmt"
	"strings"

	"apicatalog/internal/explorer"
	"apicatalog/internal/introspect"
	"apicatalog/internal/model"
)

func newExploreCommand(app *App) *Command {
	cmd := leaf(app, "explore", "Test a database connection and describe its tables: explore [flags] [table...]")
	var in model.RestApiInput
	connFlags(cmd.Flags, &in, false)
	profile := cmd.Flags.String("profile", "", "Use a saved connection profile by id")
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		ctx := context.Background()
		if *profile != "" {
			cat, notices := app.catalog()
			cat.RestApis.Fetch(ctx)
			if err := notices.err("fetch connections"); err != nil {
				return err
			}
			c, ok := cat.RestApis.Get(model.ID(*profile))
			if !ok {
				return fmt.Errorf("connection %s not found", *profile)
			}
			in = model.RestApiInput{
				ProjectName: c.ProjectName, Engine: c.Engine, IP: c.IP, Port: formPort(c.Port),
				Username: c.Username, Password: c.Password, DatabaseName: c.DatabaseName,
			}
		}

		s := explorer.NewSession(app.client())
		defer s.Close()
		s.SetForm(in)
		tables, err := s.TestConnection(ctx)
		if err != nil {
			return err
		}

		described := map[string]introspect.TableStructure{}
		var order []string
		for _, table := range cmd.Flags.Args() {
			if _, done := described[table]; done {
				continue
			}
			if err := s.ToggleTable(ctx, table); err != nil {
				return err
			}
			described[table] = s.Structure()
			order = append(order, table)
		}

		if *asJSON {
			return printJSON(app.Out, map[string]any{"tables": tables, "structures": described})
		}
		fmt.Fprintf(app.Out, "Connection OK, %d tables: %s\n", len(tables), strings.Join(tables, ", "))
		for _, table := range order {
			fmt.Fprintf(app.Out, "\n%s\n", table)
			var rows [][]string
			for _, c := range described[table] {
				dflt := ""
				if c.Default != nil {
					dflt = *c.Default
				}
				rows = append(rows, []string{c.Field, c.Type, c.Null, c.Key, dflt, c.Extra})
			}
			if err := printTable(app.Out, []string{"FIELD", "TYPE", "NULL", "KEY", "DEFAULT", "EXTRA"}, rows); err != nil {
				return err
			}
		}
		return nil
	}
	return cmd
}

func formPort(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}
