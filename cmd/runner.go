package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/repositories"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	store      services.ItemStore
	producer   services.Producer
	backend    services.PromptBackend
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Store      services.ItemStore
	Producer   services.Producer
	Backend    services.PromptBackend // optional
	DB         *sql.DB                // opened from Config.Database on first use when nil
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		store:      opts.Store,
		producer:   opts.Producer,
		backend:    opts.Backend,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.engine = r.newEngine()
	return r
}

// SetLogger replaces the logger and rebuilds the engine so its log lines follow.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.engine = r.newEngine()
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) newEngine() *tasks.Engine {
	pollEvery, err := r.config.Jobs.PollEvery()
	if err != nil {
		r.logger.Warn("invalid poll interval, using default", "error", err)
	}
	staleAfter, err := r.config.Jobs.StaleTimeout()
	if err != nil {
		r.logger.Warn("invalid stale timeout, using default", "error", err)
	}

	return tasks.NewEngine(tasks.EngineOpts{
		Producer:     r.producer,
		Logger:       r.logger,
		PollInterval: pollEvery,
		StaleAfter:   staleAfter,
		RateLimit:    r.config.Jobs.RateLimit,
	})
}

// newFeed creates a Feed over the item store for category.
func (r *Runner) newFeed(category tasks.Category) *tasks.Feed {
	hint := string(category)
	if category == tasks.CategoryAll {
		hint = ""
	}
	return tasks.NewFeed(tasks.FeedOpts{
		Store:    r.store,
		PageSize: r.config.Feed.PageSize,
		Category: hint,
		Logger:   r.logger,
	})
}

// database returns the local database, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if r.config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// promptSync wires saved prompts and chat history to the local database and the backend.
func (r *Runner) promptSync() (*tasks.PromptSync, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return tasks.NewPromptSync(tasks.PromptSyncOpts{
		Prompts: repositories.NewPromptRepository(db),
		History: repositories.NewHistoryRepository(db),
		Backend: r.backend,
		UserID:  r.config.API.UserID,
		Logger:  r.logger,
	}), nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, itemsCommand, jobsCommand, promptsCommand, exportCommand, downloadCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reportProgress prints progress messages prefixed with prefix until stop is called.
// A quiet report (JSON output) returns a nil channel, which progress senders skip.
func (r *Runner) reportProgress(prefix string, quiet bool) (progress chan<- tasks.ProgressUpdate, stop func()) {
	if quiet {
		return nil, func() {}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s %s\n", prefix, update.Message)
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
