package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/fetch"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/install"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/verify"
)

// installOptions holds flags that override the config's install table.
type installOptions struct {
	dest       string
	staged     bool
	retries    int
	noProgress bool
}

func (o *installOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.dest, "dest", "", "install directory (default from config, \"sdk\")")
	cmd.Flags().BoolVar(&o.staged, "staged", false, "extract into a sibling directory and rename into place")
	cmd.Flags().IntVar(&o.retries, "retries", 0, "retry transient download failures this many times")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "do not draw download progress")
}

// apply copies explicitly set flags over the config.
func (o *installOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("dest") {
		cfg.Install.Dest = o.dest
	}
	if cmd.Flags().Changed("staged") {
		cfg.Install.Staged = o.staged
	}
	if cmd.Flags().Changed("retries") {
		cfg.Install.Retries = o.retries
	}
}

func newInstallCmd(g *globalOptions) *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the SDK for this platform",
		Long: `Install the SDK for this platform.

If the destination directory already exists the command reports that the
SDK is installed and does nothing else. Remove the directory to reinstall.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, g, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runInstall(cmd *cobra.Command, g *globalOptions, opts *installOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(ctx, g)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}

	dest, err := filepath.Abs(cfg.Install.Dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	fopts := fetch.Options{
		MaxRedirects: cfg.Install.MaxRedirects,
		HopTimeout:   cfg.Install.Timeout,
		Retries:      cfg.Install.Retries,
		UserAgent:    "sdkfetch/" + strings.TrimPrefix(Version, "v"),
		Logger:       g.logger,
	}
	if fopts.MaxRedirects == 0 {
		fopts.MaxRedirects = -1
	}
	if strings.HasPrefix(cat.BaseURL(), "s3://") {
		client, err := fetch.NewS3Client(ctx)
		if err != nil {
			return err
		}
		fopts.S3 = client
	}

	var progressDone chan struct{}
	if !opts.noProgress {
		events := make(chan fetch.Progress, 16)
		progressDone = make(chan struct{})
		fopts.Progress = events
		go func() {
			defer close(progressDone)
			renderProgress(cmd.ErrOrStderr(), events)
		}()
		defer func() {
			close(events)
			<-progressDone
		}()
	}

	orch, err := install.New(
		platform.NewResolver(g.detector, cat),
		cat,
		fetch.NewDownloader(fopts),
		verify.NewVerifier(),
		installOptionsFor(cfg, dest, g),
	)
	if err != nil {
		return err
	}

	lock, err := install.AcquireLock(filepath.Dir(dest))
	if err != nil {
		return err
	}
	defer lock.Release()

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(out, "%s %v\n", warnStyle.Render("!"), w)
	}

	if result.Skipped {
		fmt.Fprintf(out, "%s SDK already installed at %s\n", okStyle.Render("✓"), dest)
		return nil
	}
	d := result.Descriptor
	fmt.Fprintf(out, "%s Installed SDK %s for %s into %s %s\n",
		okStyle.Render("✓"), cat.Version(), d.Key, dest,
		dimStyle.Render("("+humanize.Bytes(uint64(result.Bytes))+")"))
	return nil
}

func installOptionsFor(cfg *config.Config, dest string, g *globalOptions) install.Options {
	opts := install.Options{
		Dest:   dest,
		Prune:  cfg.Install.Prune,
		Staged: cfg.Install.Staged,
		Logger: g.logger,
	}
	if cfg.Signature.Enabled() {
		opts.Signature = &install.SignatureCheck{
			Keyring: cfg.Signature.Keyring,
			Suffix:  cfg.Signature.Suffix,
		}
	}
	if cfg.Bundle.Enabled() {
		opts.Bundle = &install.BundleCheck{
			Suffix: cfg.Bundle.Suffix,
			Policy: verify.BundlePolicy{
				Issuer:      cfg.Bundle.Issuer,
				Identity:    cfg.Bundle.Identity,
				TrustedRoot: cfg.Bundle.TrustedRoot,
			},
		}
	}
	return opts
}
