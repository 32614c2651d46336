package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/model"
	"apicatalog/internal/store"
)

func newEndpointCommand(app *App) *Command {
	return group(app, "endpoint", "Manage catalogued endpoints",
		newEndpointListCommand(app),
		newEndpointAddCommand(app),
		newEndpointUpdateCommand(app),
		newEndpointDeleteCommand(app),
		newEndpointExampleCommand(app),
		newEndpointGenerateCommand(app),
		newEndpointCallCommand(app),
	)
}

func newEndpointListCommand(app *App) *Command {
	cmd := leaf(app, "list", "List endpoints")
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	status := cmd.Flags.String("status", "", "Only endpoints with this status (Develop, Production)")
	domain := cmd.Flags.String("domain", "", "Only endpoints whose baseUrl contains this text")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		cat, notices := app.catalog()
		if *status != "" {
			st, err := model.ParseStatus(*status)
			if err != nil {
				return err
			}
			cat.Endpoints.SetStatusFilter(st)
		}
		cat.Endpoints.Fetch(context.Background())
		if err := notices.err("fetch endpoints"); err != nil {
			return err
		}
		eps := cat.Endpoints.Filtered(*domain)
		if *asJSON {
			if eps == nil {
				eps = []model.Endpoint{}
			}
			return printJSON(app.Out, eps)
		}
		rows := make([][]string, 0, len(eps))
		for _, ep := range eps {
			rows = append(rows, []string{
				ep.ID.String(), string(ep.Method), ep.URL(), string(ep.Status),
				strings.Join(ep.Websites, ", "), ep.Description,
			})
		}
		if err := printTable(app.Out, []string{"ID", "METHOD", "URL", "STATUS", "WEBSITES", "DESCRIPTION"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "\nTotal: %d endpoints\n", len(eps))
		return nil
	}
	return cmd
}

// endpointFlags are the form fields shared by add and update.
type endpointFlags struct {
	domain, method, path, description, status, websites, response, responseFile, table *string
}

func bindEndpointFlags(fs *flag.FlagSet) endpointFlags {
	return endpointFlags{
		domain:       fs.String("domain", "", "Base URL of a registered domain"),
		method:       fs.String("method", "", "HTTP method (GET, POST, PUT, DELETE)"),
		path:         fs.String("path", "", "Endpoint path"),
		description:  fs.String("description", "", "What the endpoint does"),
		status:       fs.String("status", "", "Develop or Production"),
		websites:     fs.String("websites", "", "Comma-separated websites using the endpoint"),
		response:     fs.String("response", "", "Example response as JSON text"),
		responseFile: fs.String("response-file", "", "Read the example response from a file"),
		table:        fs.String("table", "", "Generate the example response from this table of the backend database"),
	}
}

// responseText resolves the example response from -response, -response-file
// or -table, in that order. ok is false when none was given.
func (f endpointFlags) responseText(ctx context.Context, eps *store.EndpointStore) (string, bool, error) {
	switch {
	case *f.response != "":
		return *f.response, true, nil
	case *f.responseFile != "":
		b, err := os.ReadFile(*f.responseFile)
		if err != nil {
			return "", false, fmt.Errorf("read response file: %w", err)
		}
		return string(b), true, nil
	case *f.table != "":
		raw := eps.GenerateResponseJSON(ctx, *f.table)
		if raw == nil {
			return "", false, fmt.Errorf("could not generate a response from table %s", *f.table)
		}
		return indentJSON(raw), true, nil
	}
	return "", false, nil
}

func newEndpointAddCommand(app *App) *Command {
	cmd := leaf(app, "add", "Add an endpoint")
	f := bindEndpointFlags(cmd.Flags)
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		ctx := context.Background()
		cat, _ := app.catalog()
		resp, _, err := f.responseText(ctx, cat.Endpoints)
		if err != nil {
			return err
		}
		created, err := cat.Endpoints.Add(ctx, model.EndpointDraft{
			BaseURL:     *f.domain,
			Method:      *f.method,
			Path:        *f.path,
			Description: *f.description,
			Status:      *f.status,
			Websites:    model.SplitWebsites(*f.websites),
			Response:    resp,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Endpoint %s %s added with id %s\n", created.Method, created.Path, created.ID)
		return nil
	}
	return cmd
}

func newEndpointUpdateCommand(app *App) *Command {
	cmd := leaf(app, "update", "Update fields of an endpoint: update [flags] <id>")
	f := bindEndpointFlags(cmd.Flags)
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		id, err := firstArg(cmd.Flags, "endpoint id")
		if err != nil {
			return err
		}
		set := map[string]bool{}
		cmd.Flags.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

		var p model.EndpointPatch
		if set["domain"] {
			p.BaseURL = f.domain
		}
		if set["method"] {
			p.Method = f.method
		}
		if set["path"] {
			p.Path = f.path
		}
		if set["description"] {
			p.Description = f.description
		}
		if set["status"] {
			p.Status = f.status
		}
		if set["websites"] {
			w := model.SplitWebsites(*f.websites)
			p.Websites = &w
		}

		ctx := context.Background()
		cat, _ := app.catalog()
		resp, ok, err := f.responseText(ctx, cat.Endpoints)
		if err != nil {
			return err
		}
		if ok {
			p.Response = &resp
		}
		if err := cat.Endpoints.Update(ctx, model.ID(id), p); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Endpoint %s updated\n", id)
		return nil
	}
	return cmd
}

func newEndpointDeleteCommand(app *App) *Command {
	cmd := leaf(app, "delete", "Delete an endpoint: delete <id>")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		id, err := firstArg(cmd.Flags, "endpoint id")
		if err != nil {
			return err
		}
		cat, notices := app.catalog()
		cat.Endpoints.Delete(context.Background(), model.ID(id))
		if err := notices.err("delete endpoint"); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Endpoint %s deleted\n", id)
		return nil
	}
	return cmd
}

func newEndpointExampleCommand(app *App) *Command {
	cmd := leaf(app, "example", "Print example data for a table of the backend database: example <table>")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		table, err := firstArg(cmd.Flags, "table name")
		if err != nil {
			return err
		}
		cat, _ := app.catalog()
		raw := cat.Endpoints.GenerateResponseJSON(context.Background(), table)
		if raw == nil {
			return fmt.Errorf("no example data for table %s", table)
		}
		fmt.Fprintln(app.Out, indentJSON(raw))
		return nil
	}
	return cmd
}

func newEndpointGenerateCommand(app *App) *Command {
	cmd := leaf(app, "generate", "Create an endpoint from a table reachable through a stored connection")
	conn := cmd.Flags.String("connection", "", "Connection id")
	table := cmd.Flags.String("table", "", "Table name")
	path := cmd.Flags.String("path", "", "Endpoint path (default: table name)")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		cat, _ := app.catalog()
		created, err := cat.Endpoints.GenerateFromTable(context.Background(), model.ID(*conn), *table, *path)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Endpoint %s %s generated with id %s\n", created.Method, created.Path, created.ID)
		return nil
	}
	return cmd
}

func newEndpointCallCommand(app *App) *Command {
	cmd := leaf(app, "call", "Smoke-test an endpoint: call [-proxy path] <id>")
	proxy := cmd.Flags.String("proxy", "", "Call through the backend proxy with this path instead of the endpoint URL")
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		id, err := firstArg(cmd.Flags, "endpoint id")
		if err != nil {
			return err
		}
		ctx := context.Background()
		cat, notices := app.catalog()

		var res apiclient.ProbeResult
		set := false
		cmd.Flags.Visit(func(fl *flag.Flag) { set = set || fl.Name == "proxy" })
		if set {
			res = cat.Endpoints.CallPublicAPIByIDAndPath(ctx, model.ID(id), *proxy)
		} else {
			cat.Endpoints.Fetch(ctx)
			if err := notices.err("fetch endpoints"); err != nil {
				return err
			}
			eps := cat.Endpoints.All()
			i := slices.IndexFunc(eps, func(ep model.Endpoint) bool { return ep.ID.String() == id })
			if i < 0 {
				return fmt.Errorf("endpoint %s not found", id)
			}
			res = cat.Endpoints.CallPublicAPI(ctx, eps[i])
		}

		if *asJSON {
			return printJSON(app.Out, res)
		}
		if res.OK {
			fmt.Fprintf(app.Out, "OK %d %s (%s)\n", res.Status, res.URL, res.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(app.Out, "FAILED %s: %s\n", res.URL, res.Error)
		}
		if len(res.Body) > 0 {
			fmt.Fprintln(app.Out, indentJSON(res.Body))
		}
		if !res.OK {
			return fmt.Errorf("call failed")
		}
		return nil
	}
	return cmd
}
