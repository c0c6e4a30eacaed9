// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func syncFlag() cli.Flag {
	return &cli.BoolFlag{Name: "sync", Usage: "Push the change before exiting", Value: true}
}

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the web app.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web app",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the app in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles the CLI's identity session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session used for sync",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("TODOX_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user and sync state",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// todosCommand handles todo operations against the local-first store.
func todosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "todos",
		Aliases: []string{"todo", "t"},
		Usage:   "Local-first todo operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List todos",
				Flags:  []cli.Flag{jsonFlag(), &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true}, &cli.BoolFlag{Name: "pull", Usage: "Sync before listing"}},
				Action: r.TodosList,
			},
			{
				Name:      "add",
				Usage:     "Add a todo",
				Arguments: []cli.Argument{&cli.StringArg{Name: "text"}},
				Flags:     []cli.Flag{syncFlag()},
				Action:    r.TodosAdd,
			},
			{
				Name:      "toggle",
				Usage:     "Flip a todo between open and done",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{syncFlag()},
				Action:    r.TodosToggle,
			},
			{
				Name:      "edit",
				Usage:     "Replace a todo's text",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "text"}},
				Flags:     []cli.Flag{syncFlag()},
				Action:    r.TodosEdit,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a todo",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{syncFlag()},
				Action:    r.TodosDelete,
			},
			{
				Name:   "clear",
				Usage:  "Delete every todo",
				Flags:  []cli.Flag{syncFlag()},
				Action: r.TodosClear,
			},
			{
				Name:   "sync",
				Usage:  "Pull remote changes and push pending ones",
				Action: r.TodosSync,
			},
			{
				Name:  "export",
				Usage: "Export todos to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, text)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: todos.{ext})",
					},
				},
				Action: r.TodosExport,
			},
			{
				Name:  "log",
				Usage: "Show recently acknowledged pushes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 20},
					jsonFlag(),
				},
				Action: r.TodosLog,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive todo management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for your todos",
		Action:  r.TUI,
	}
}
