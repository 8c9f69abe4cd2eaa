// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func recipeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "recipe",
		Aliases: []string{"r"},
		Usage:   "Recipe ID the session belongs to",
	}
}

// setupCommand handles setup operations for the database and authentication.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the snapshot cache and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "auth",
				Usage: "Configure API credentials from a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupAuth,
			},
		},
	}
}

// recipesCommand lists recipes available to the workspace.
func recipesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recipes",
		Usage: "List recipes available to cook",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Recipes,
	}
}

// sessionCommand handles cook-session operations
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"s"},
		Usage:   "Cook-session operations",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start (or resume) a cook session for a recipe",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "recipe",
						Aliases:  []string{"r"},
						Usage:    "Recipe ID to cook",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionStart,
			},
			{
				Name:  "status",
				Usage: "Show the active session",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "md",
						Usage: "Output markdown",
					},
				},
				Action: r.SessionStatus,
			},
			{
				Name:  "step",
				Usage: "Navigate between steps",
				Commands: []*cli.Command{
					{
						Name:    "next",
						Aliases: []string{"n"},
						Usage:   "Advance to the next step",
						Flags:   []cli.Flag{recipeFlag()},
						Action:  r.StepNext,
					},
					{
						Name:    "prev",
						Aliases: []string{"p"},
						Usage:   "Go back to the previous step",
						Flags:   []cli.Flag{recipeFlag()},
						Action:  r.StepPrev,
					},
					{
						Name:  "goto",
						Usage: "Jump to a step by number (1-based)",
						Arguments: []cli.Argument{
							&cli.StringArg{
								Name: "step",
							},
						},
						Flags:  []cli.Flag{recipeFlag()},
						Action: r.StepGoto,
					},
				},
			},
			{
				Name:  "check",
				Usage: "Toggle a checklist bullet on the current step",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.IntFlag{
						Name:  "step",
						Usage: "Step index (defaults to the current step)",
						Value: -1,
					},
					&cli.IntFlag{
						Name:     "bullet",
						Aliases:  []string{"b"},
						Usage:    "Bullet index to toggle",
						Required: true,
					},
				},
				Action: r.SessionCheck,
			},
			{
				Name:    "ingredients",
				Aliases: []string{"ing"},
				Usage:   "Show ingredients scaled to the target servings",
				Flags:   []cli.Flag{recipeFlag()},
				Action:  r.SessionIngredients,
			},
			{
				Name:  "rescale",
				Usage: "Change the target serving count",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.IntFlag{
						Name:     "servings",
						Aliases:  []string{"n"},
						Usage:    "Target serving count",
						Required: true,
					},
				},
				Action: r.SessionRescale,
			},
			{
				Name:  "adjust",
				Usage: "Record a free-form adjustment note",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "note",
					},
				},
				Flags:  []cli.Flag{recipeFlag()},
				Action: r.SessionAdjust,
			},
			{
				Name:    "adjustments",
				Aliases: []string{"adj"},
				Usage:   "List recorded adjustments with their numbers",
				Flags:   []cli.Flag{recipeFlag()},
				Action:  r.SessionAdjustments,
			},
			{
				Name:  "undo",
				Usage: "Undo a recorded adjustment by number (1-based)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "index",
					},
				},
				Flags:  []cli.Flag{recipeFlag()},
				Action: r.SessionUndo,
			},
			{
				Name:  "end",
				Usage: "Complete the active session",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.BoolFlag{
						Name:  "abandon",
						Usage: "Abandon instead of completing",
					},
				},
				Action: r.SessionEnd,
			},
			{
				Name:   "open",
				Usage:  "Open the session in the web app",
				Flags:  []cli.Flag{recipeFlag()},
				Action: r.SessionOpen,
			},
		},
	}
}

// timerCommand handles timer operations
func timerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "timer",
		Aliases: []string{"t"},
		Usage:   "Timer operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List timers with live remaining time",
				Flags:  []cli.Flag{recipeFlag()},
				Action: r.TimerList,
			},
			{
				Name:  "create",
				Usage: "Create a timer",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.IntFlag{
						Name:  "step",
						Usage: "Step index (defaults to the current step)",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Timer label",
					},
					&cli.IntFlag{
						Name:  "seconds",
						Usage: "Duration in seconds (defaults to the step's timed duration)",
					},
				},
				Action: r.TimerCreate,
			},
			{
				Name:      "start",
				Usage:     "Start a paused timer",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{recipeFlag()},
				Action:    r.TimerStart,
			},
			{
				Name:      "pause",
				Usage:     "Pause a running timer",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{recipeFlag()},
				Action:    r.TimerPause,
			},
			{
				Name:      "done",
				Usage:     "Mark a timer done",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{recipeFlag()},
				Action:    r.TimerDone,
			},
			{
				Name:      "delete",
				Usage:     "Delete a timer",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{recipeFlag()},
				Action:    r.TimerDelete,
			},
			{
				Name:  "watch",
				Usage: "Watch timers and alert when one finishes",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.BoolFlag{
						Name:  "mute",
						Usage: "Suppress the finished-timer tone",
					},
				},
				Action: r.TimerWatch,
			},
		},
	}
}

// suggestCommand handles autoflow suggestions
func suggestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Autoflow suggestions for the active session",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show current suggestions",
				Flags: []cli.Flag{
					recipeFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SuggestList,
			},
			{
				Name:  "accept",
				Usage: "Accept a suggestion by number (1-based)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "index",
					},
				},
				Flags:  []cli.Flag{recipeFlag()},
				Action: r.SuggestAccept,
			},
		},
	}
}

// assistCommand asks the stateless assist endpoint for help.
func assistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "assist",
		Usage: "Ask for substitution, nutrition, or quick-fix help",
		Flags: []cli.Flag{
			recipeFlag(),
			&cli.StringFlag{
				Name:  "intent",
				Usage: "Assist intent (substitute, nutrition, or fix)",
				Value: "fix",
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "Step index the question is about",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Assist,
	}
}

// cacheCommand inspects locally cached session snapshots
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect locally cached session snapshots",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List cached sessions",
				Action: r.CacheList,
			},
			{
				Name:      "show",
				Usage:     "Show a cached session snapshot",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a cached session snapshot",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CacheDelete,
			},
			{
				Name:   "clear",
				Usage:  "Delete all cached snapshots",
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand runs the bundled reference server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the bundled reference server with built-in recipes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (defaults to server.host from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (defaults to server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive cooking.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"cook", "ui"},
		Usage:   "Launch the interactive cook-mode TUI",
		Flags: []cli.Flag{
			recipeFlag(),
			&cli.BoolFlag{
				Name:  "mute",
				Usage: "Suppress the finished-timer tone",
			},
		},
		Action: r.TUI,
	}
}
