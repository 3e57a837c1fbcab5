package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool

	// detector is replaced in tests.
	detector platform.Detector
	logger   *slog.Logger
}

func newRootCmd(g *globalOptions) *cobra.Command {
	inst := &installOptions{}

	root := &cobra.Command{
		Use:   "sdkfetch",
		Short: "Download, verify and unpack the native audio SDK",
		Long: `sdkfetch installs the prebuilt native SDK for the host platform.

It resolves the platform key (for example linux-x64), downloads the pinned
release archive, checks its SHA-256 digest, unpacks it into the destination
directory and removes the examples and docs. If the destination already
exists nothing is downloaded.

Examples:
  # Install into ./sdk
  sdkfetch

  # Install into a vendor directory, all or nothing
  sdkfetch install --dest vendor/aic-sdk --staged

  # Show the pinned release table
  sdkfetch catalog
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(g.logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, g, inst)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Lua config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	inst.bind(root)

	root.AddCommand(newInstallCmd(g))
	root.AddCommand(newCatalogCmd(g))
	root.AddCommand(newPlatformCmd(g))
	root.AddCommand(newVersionCmd(g))
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return executeWith(ctx, args, stdout, stderr, platform.NewDetector())
}

func executeWith(ctx context.Context, args []string, stdout, stderr io.Writer, detector platform.Detector) int {
	g := &globalOptions{detector: detector, logger: slog.New(slog.NewTextHandler(stderr, nil))}

	root := newRootCmd(g)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", config.FormatError(err, g.verbose))
		return 1
	}
	return 0
}

// loadConfig evaluates the embedded defaults plus the user config, if any.
func loadConfig(ctx context.Context, g *globalOptions) (*config.Config, error) {
	parser := config.NewParser(g.detector)
	if path := config.Path(g.configPath); path != "" {
		g.logger.Debug("loading config", "path", path)
		return parser.ParseFile(ctx, path)
	}
	return parser.Defaults(ctx)
}
