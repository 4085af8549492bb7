package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arugifa/websync/internal/cloud"
	"github.com/arugifa/websync/internal/config"
	"github.com/arugifa/websync/internal/content"
	"github.com/arugifa/websync/internal/db"
	"github.com/arugifa/websync/internal/reader"
	"github.com/arugifa/websync/internal/store"
	"github.com/arugifa/websync/internal/update"
	"github.com/arugifa/websync/internal/vcs"
	"github.com/arugifa/websync/internal/vocab"
	"github.com/arugifa/websync/internal/watcher"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "websync",
		Short:   "Website content manager",
		Long:    `Synchronizes a version-controlled content repository into the website's database, and publishes the frozen static site to object storage.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		updateCmd(),
		watchCmd(),
		statusCmd(),
		migrateCmd(),
		publishCmd(),
		vocabCmd(),
		initCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager wires the repository, store and processor bindings for one
// or more synchronization runs.
func newManager(cfg *config.Config, database *db.DB) *update.Manager {
	contentReader := &reader.Auto{
		File:       reader.NewFile(cfg.RepositoryPath),
		Converter:  reader.NewConverter(cfg.RepositoryPath, cfg.Update.Converter),
		ConvertExt: cfg.Update.SourceExtension,
	}

	bindings := map[string]update.ProcessorFactory{
		"blog": func(resolver *content.Resolver) content.Processor {
			return content.NewArticleProcessor("blog", contentReader, resolver)
		},
		"notes": func(resolver *content.Resolver) content.Processor {
			return content.NewNoteProcessor("notes", contentReader, resolver)
		},
	}

	return &update.Manager{
		Repo:           vcs.New(cfg.RepositoryPath),
		Store:          store.NewPG(database),
		Bindings:       bindings,
		Prompt:         update.NewPrompt(os.Stdin, os.Stdout),
		Out:            os.Stdout,
		IgnorePatterns: cfg.IgnorePatterns,
	}
}

// runUpdate performs one synchronization run and records the new commit
// on success.
func runUpdate(ctx context.Context, cfg *config.Config, database *db.DB, since string, interactive bool) error {
	manager := newManager(cfg, database)
	repo := vcs.New(cfg.RepositoryPath)

	tracker, err := update.NewStateTracker(cfg.RepositoryPath)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}

	if since == "" {
		since = tracker.LastCommit()
	}
	if since == "" {
		return fmt.Errorf("no previous sync recorded; pass --since explicitly")
	}

	head, err := repo.Head(ctx)
	if err != nil {
		return err
	}
	if head == since {
		fmt.Println("Already up to date.")
		return nil
	}

	if err := manager.Run(ctx, since, interactive); err != nil {
		return err
	}

	tracker.SetLastCommit(head)
	if err := tracker.Save(); err != nil {
		slog.Warn("failed to save sync state", "error", err)
	}

	return nil
}

func updateCmd() *cobra.Command {
	var since string
	var yes bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Synchronize repository changes into the database",
		Long:  `Computes the repository diff since the last synchronized commit, previews the intended changes, asks for confirmation and applies the whole batch atomically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			err = runUpdate(ctx, cfg, database, since, !yes)
			if errors.Is(err, update.ErrUpdateAborted) {
				fmt.Println("Update aborted. Nothing changed.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "revision to diff against (defaults to the last synchronized commit)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking for confirmation")

	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the repository and synchronize on change",
		Long:  `Watches the content repository and runs a non-interactive synchronization whenever a burst of changes settles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			w, err := watcher.New(cfg.RepositoryPath, cfg.Watch.DebounceMs, cfg.IgnorePatterns)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			slog.Info("watching repository", "path", cfg.RepositoryPath)
			fmt.Println("Watching repository for changes. Press Ctrl+C to stop.")

			for {
				select {
				case <-sigCh:
					slog.Info("shutting down...")
					w.Stop()
					return nil

				case <-w.Changed():
					if err := runUpdate(ctx, cfg, database, "", false); err != nil {
						slog.Error("synchronization failed", "error", err)
					}
				}
			}
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status and content counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				fmt.Printf("Database Status: Disconnected\n")
				fmt.Printf("Error: %v\n", err)
				return nil
			}
			defer database.Close()

			status, err := database.GetStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			tracker, err := update.NewStateTracker(cfg.RepositoryPath)
			if err != nil {
				return err
			}

			fmt.Println("=== Websync Status ===")
			fmt.Printf("Database Status: Connected\n")
			fmt.Printf("  Host: %s\n", cfg.Database.Host)
			fmt.Printf("  Database: %s\n", cfg.Database.Database)
			fmt.Println()
			fmt.Printf("Repository: %s\n", cfg.RepositoryPath)
			if commit := tracker.LastCommit(); commit != "" {
				fmt.Printf("  Last Synced Commit: %s\n", commit)
			}
			fmt.Println()
			fmt.Printf("Documents:\n")
			for kind, count := range status.Documents {
				fmt.Printf("  %s: %d\n", kind, count)
			}
			fmt.Printf("Categories: %d\n", status.Categories)
			fmt.Printf("Tags: %d\n", status.Tags)

			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Runs all pending database migrations.`,
	}

	migrationsDir := ""
	cmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		database, err := db.New(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		// Resolve migrations directory
		if !filepath.IsAbs(migrationsDir) {
			// Try relative to executable first
			exe, _ := os.Executable()
			exeDir := filepath.Dir(exe)
			if _, err := os.Stat(filepath.Join(exeDir, migrationsDir)); err == nil {
				migrationsDir = filepath.Join(exeDir, migrationsDir)
			} else {
				// Try relative to current directory
				cwd, _ := os.Getwd()
				migrationsDir = filepath.Join(cwd, migrationsDir)
			}
		}

		if err := database.RunMigrations(ctx, migrationsDir); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Println("Migrations completed successfully.")
		return nil
	}

	return cmd
}

func publishCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the frozen site to object storage",
		Long:  `Diffs the frozen static site against the remote container and uploads new or changed files, deleting stale remote objects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Publish.SiteDir == "" {
				return fmt.Errorf("publish.site_dir is not configured")
			}

			container, err := cloud.NewDirContainer(filepath.Join(target, cfg.Publish.Container))
			if err != nil {
				return fmt.Errorf("failed to open container: %w", err)
			}

			publisher := &cloud.Publisher{Dir: cfg.Publish.SiteDir, Container: container}
			report, err := publisher.Publish(ctx)
			if err != nil {
				return fmt.Errorf("publication failed: %w", err)
			}

			if report.Empty() {
				fmt.Println("Nothing to publish.")
				return nil
			}
			fmt.Printf("Published: %d added, %d refreshed, %d deleted.\n",
				len(report.Added), len(report.Refreshed), len(report.Deleted))
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "mount point of the object-storage container")
	cmd.MarkFlagRequired("target")

	return cmd
}

func vocabCmd() *cobra.Command {
	var categoriesFile, tagsFile string

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Load category and tag vocabulary files",
		Long:  `Loads slug-to-name vocabulary files and upserts the corresponding categories and tags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if categoriesFile == "" && tagsFile == "" {
				return fmt.Errorf("pass --categories and/or --tags")
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			uow, err := store.NewPG(database).Begin(ctx)
			if err != nil {
				return err
			}

			if categoriesFile != "" {
				v, err := vocab.Load(categoriesFile)
				if err != nil {
					uow.Rollback(ctx)
					return fmt.Errorf("categories vocabulary: %w", err)
				}
				if err := vocab.ApplyCategories(ctx, uow, v); err != nil {
					uow.Rollback(ctx)
					return err
				}
				fmt.Printf("Loaded %d categories.\n", v.Len())
			}

			if tagsFile != "" {
				v, err := vocab.Load(tagsFile)
				if err != nil {
					uow.Rollback(ctx)
					return fmt.Errorf("tags vocabulary: %w", err)
				}
				if err := vocab.ApplyTags(ctx, uow, v); err != nil {
					uow.Rollback(ctx)
					return err
				}
				fmt.Printf("Loaded %d tags.\n", v.Len())
			}

			return uow.Commit(ctx)
		},
	}

	cmd.Flags().StringVar(&categoriesFile, "categories", "", "categories vocabulary file (YAML)")
	cmd.Flags().StringVar(&tagsFile, "tags", "", "tags vocabulary file (YAML)")

	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup to create config file",
		Long:  `Interactively creates a configuration file and tests the database connection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(os.Stdin)

			fmt.Println("=== Websync Setup ===")
			fmt.Println()

			fmt.Print("Content repository path: ")
			repoPath, _ := in.ReadString('\n')
			repoPath = strings.TrimSpace(repoPath)

			if _, err := os.Stat(repoPath); os.IsNotExist(err) {
				return fmt.Errorf("repository path does not exist: %s", repoPath)
			}
			if _, err := os.Stat(filepath.Join(repoPath, ".git")); os.IsNotExist(err) {
				return fmt.Errorf("not a git repository: %s", repoPath)
			}

			fmt.Println("\nDatabase Configuration:")
			fmt.Print("  Host: ")
			host, _ := in.ReadString('\n')
			host = strings.TrimSpace(host)

			fmt.Print("  Port [5432]: ")
			portStr, _ := in.ReadString('\n')
			portStr = strings.TrimSpace(portStr)
			if portStr == "" {
				portStr = "5432"
			}

			fmt.Print("  User: ")
			user, _ := in.ReadString('\n')
			user = strings.TrimSpace(user)

			fmt.Print("  Password: ")
			password, _ := in.ReadString('\n')
			password = strings.TrimSpace(password)

			fmt.Print("  Database name: ")
			dbName, _ := in.ReadString('\n')
			dbName = strings.TrimSpace(dbName)
			if dbName == "" {
				return fmt.Errorf("database name is required")
			}

			fmt.Print("\nFrozen site directory (optional): ")
			siteDir, _ := in.ReadString('\n')
			siteDir = strings.TrimSpace(siteDir)

			configDir, err := config.GetStateDir()
			if err != nil {
				return err
			}
			configPath := filepath.Join(configDir, "config.yaml")

			var b strings.Builder
			fmt.Fprintf(&b, "repository_path: %s\n", repoPath)
			fmt.Fprintf(&b, "database:\n")
			fmt.Fprintf(&b, "  host: %s\n", host)
			fmt.Fprintf(&b, "  port: %s\n", portStr)
			fmt.Fprintf(&b, "  user: %s\n", user)
			fmt.Fprintf(&b, "  password: %s\n", password)
			fmt.Fprintf(&b, "  database: %s\n", dbName)
			if siteDir != "" {
				fmt.Fprintf(&b, "publish:\n")
				fmt.Fprintf(&b, "  site_dir: %s\n", siteDir)
			}

			if err := os.WriteFile(configPath, []byte(b.String()), 0600); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("\nConfig written to %s\n", configPath)

			// Test the connection with the new config
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}

			ctx := context.Background()
			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				fmt.Printf("Warning: could not connect to database: %v\n", err)
				return nil
			}
			database.Close()

			fmt.Println("Database connection OK.")
			return nil
		},
	}
}
