package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mwrunner/internal/backend"
	"mwrunner/internal/config"
	"mwrunner/internal/executor"
	"mwrunner/internal/mediawiki"
	"mwrunner/internal/pipeline"
	"mwrunner/internal/projects"
	"mwrunner/internal/stage"
	"mwrunner/internal/zuul"
	"mwrunner/pkg/logging"
)

var (
	flagPackagesSource string
	flagSkipZuul       bool
	flagSkipDeps       bool
	flagDBEngine       string
	flagGitCache       string
	flagWorkspace      string
	flagLogDir         string
	flagRun            []string
	flagSkip           []string
	flagCommands       []string
	flagDebug          bool
)

// rootCmd is the whole runner: there is exactly one kind of run, so the
// base command carries the full flag surface instead of subcommands.
var rootCmd = &cobra.Command{
	Use:   "mwrunner [flags] [projects...]",
	Short: "Clone, install and test MediaWiki with its extensions and skins",
	Long: `mwrunner prepares a MediaWiki testing environment and runs the test
stages a CI job asks for. It clones the project under test plus its
declared dependencies, provisions a throwaway database backend, installs
the wiki, and then executes the selected stages (phpunit, npm-test,
composer-test, qunit, selenium) with any service backends they need.

Backends are started only for stages that run and are always torn down,
in reverse start order, whether the run succeeds or fails.`,
	// SilenceUsage prevents the usage dump on errors we already report,
	// such as a failing stage or an unreachable backend.
	SilenceUsage: true,
	RunE:         runRoot,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command. Called once, by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mwrunner version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	f := rootCmd.Flags()
	f.StringVar(&flagPackagesSource, "packages-source", string(config.PackagesVendor),
		"where to install PHP dependencies from: composer or vendor")
	f.BoolVar(&flagSkipZuul, "skip-zuul", false,
		"skip the repository checkout, reuse an existing workspace")
	f.BoolVar(&flagSkipDeps, "skip-deps", false,
		"skip composer and npm dependency installation")
	f.StringVar(&flagDBEngine, "db", string(backend.EngineMySQL),
		"database backend engine: sqlite, mysql or postgres")
	f.StringVar(&flagGitCache, "git-cache", config.DefaultGitCache(),
		"path to a bare-repository cache for zuul-cloner")
	f.StringVar(&flagWorkspace, "workspace", config.DefaultWorkspace(),
		"base path to work from")
	f.StringVar(&flagLogDir, "log-dir", config.DefaultLogDir(),
		"where to write logs and test reports")
	f.StringSliceVar(&flagRun, "run", []string{stage.All},
		"tests to run, or 'all'")
	f.StringSliceVar(&flagSkip, "skip", nil,
		"tests to skip, or 'all'")
	f.StringArrayVarP(&flagCommands, "commands", "c", nil,
		"commands to run instead of the built-in stages")
	f.BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func runRoot(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	cfg, err := buildConfig(args)
	if err != nil {
		return err
	}

	defaults, err := config.LoadDefaults()
	if err != nil {
		return err
	}

	if err := cfg.Finalize(); err != nil {
		return err
	}
	if err := cfg.ExportEnvironment(); err != nil {
		return err
	}

	// After Finalize so the backends see absolute paths.
	factory, err := pipeline.NewFactory(cfg, defaults)
	if err != nil {
		return err
	}

	dependencies := projects.Resolve(projects.Resolution{
		ProjectUnderTest:      cfg.Env.ZuulProject,
		IncludeVendor:         cfg.PackagesSource == config.PackagesVendor,
		SkinDependencies:      cfg.Env.SkinDependencies,
		ExtensionDependencies: cfg.Env.ExtDependencies,
		Explicit:              cfg.Projects,
	})

	cloner := &zuul.CommandCloner{
		Workspace: cfg.InstallPath(),
		CacheDir:  cfg.GitCache,
	}
	installer := &mediawiki.Installer{
		InstallPath:    cfg.InstallPath(),
		LogDir:         cfg.LogDir,
		PackagesSource: cfg.PackagesSource,
		Dependencies:   dependencies,
	}
	runner := &executor.Runner{
		InstallPath: cfg.InstallPath(),
		LogDir:      cfg.LogDir,
		HTTPPort:    defaults.HTTPPort,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return pipeline.New(cfg, cloner, installer, runner, factory).Run(ctx)
}

// buildConfig validates every flag and snapshots the environment. All
// configuration errors surface here, before anything touches the system.
func buildConfig(args []string) (*config.RunConfig, error) {
	source, err := config.ParsePackagesSource(flagPackagesSource)
	if err != nil {
		return nil, err
	}
	engine, err := backend.ParseEngine(flagDBEngine)
	if err != nil {
		return nil, err
	}
	if err := stage.Validate(flagRun); err != nil {
		return nil, err
	}
	if err := stage.Validate(flagSkip); err != nil {
		return nil, err
	}

	return &config.RunConfig{
		PackagesSource: source,
		SkipZuul:       flagSkipZuul,
		SkipDeps:       flagSkipDeps,
		DBEngine:       engine,
		GitCache:       flagGitCache,
		Workspace:      flagWorkspace,
		LogDir:         flagLogDir,
		Projects:       args,
		Run:            flagRun,
		Skip:           flagSkip,
		Commands:       flagCommands,
		Env:            config.CaptureEnvironment(),
	}, nil
}
