package main

import "github.com/urfave/cli/v3"

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// selectionFlags choose the items an export or download works on.
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "category",
			Usage: "Category filter (all, images, videos, liked, public)",
			Value: "all",
		},
		&cli.StringSliceFlag{
			Name:  "id",
			Usage: "Restrict to these item identities (repeatable)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of items",
			Value: 50,
		},
	}
}

func waitFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "wait",
		Usage: "Poll until the job finishes",
	}
}

// setupCommand initializes the configuration file and local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// itemsCommand reads the persisted gallery.
func itemsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "items",
		Aliases: []string{"i"},
		Usage:   "Browse persisted items",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List items newest first, loading pages until the limit is reached",
				Flags:  append(selectionFlags(), outputFlags()...),
				Action: r.ItemsList,
			},
		},
	}
}

// jobsCommand starts and tracks generation jobs.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "Start and track generation jobs",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Start a generation job from a prompt",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "prompt"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Generation model",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Media kind (image or video); inferred from the model when empty",
					},
					&cli.StringFlag{
						Name:  "aspect-ratio",
						Usage: "Aspect ratio, e.g. 16:9",
					},
					&cli.StringSliceFlag{
						Name:  "ref",
						Usage: "Reference image url (repeatable)",
					},
					waitFlag(),
				}, outputFlags()...),
				Action: r.JobsGenerate,
			},
			{
				Name:  "derive",
				Usage: "Re-edit an item or turn it into a video",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "identity"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "op",
						Usage: "Derivative operation (edit or video)",
						Value: "edit",
					},
					&cli.StringFlag{
						Name:  "prompt",
						Usage: "Prompt for the new job; defaults to the source prompt",
					},
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Generation model; defaults to the source model",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Pages to search for the source item",
						Value: 10,
					},
					waitFlag(),
				}, outputFlags()...),
				Action: r.JobsDerive,
			},
			{
				Name:      "watch",
				Usage:     "Poll jobs by id until they finish",
				ArgsUsage: "<job-id>...",
				Flags:     outputFlags(),
				Action:    r.JobsWatch,
			},
		},
	}
}

// promptsCommand manages saved prompts and chat history.
func promptsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "prompts",
		Aliases: []string{"p"},
		Usage:   "Manage saved prompts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved prompts merged with the backend copy",
				Flags:  outputFlags(),
				Action: r.PromptsList,
			},
			{
				Name:  "add",
				Usage: "Save a prompt locally and push it to the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "text"},
				},
				Action: r.PromptsAdd,
			},
			{
				Name:  "sync",
				Usage: "Merge local prompts and history with the backend",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Chat session whose history is merged as well",
					},
				},
				Action: r.PromptsSync,
			},
		},
	}
}

// exportCommand writes a set of items to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export items to CSV, Markdown or JSON",
		Flags: append(selectionFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: items_{epoch}.{ext})",
			},
		),
		Action: r.Export,
	}
}

// downloadCommand fetches the media of a set of items.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download item media with a rate-limited worker pool",
		Flags: append(selectionFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: download.output_dir)",
			},
		),
		Action: r.Download,
	}
}

// tuiCommand returns the top-level TUI command for the interactive gallery.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive gallery",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Initial category",
				Value: "all",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Generation model for new jobs",
			},
		},
		Action: r.TUI,
	}
}
