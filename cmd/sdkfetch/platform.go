package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/install"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
)

func newPlatformCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), g)
			if err != nil {
				return err
			}
			cat, err := cfg.Catalog()
			if err != nil {
				return err
			}

			info, err := g.detector.Detect(cmd.Context())
			if err != nil {
				return fmt.Errorf("detect platform: %w", err)
			}

			out := cmd.OutOrStdout()
			row := func(label, value string) {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), value)
			}

			row("os", info.OS)
			row("arch", info.Arch)
			if d := info.GetDistro(); d != nil {
				row("distro", fmt.Sprintf("%s %s (%s)", d.ID, d.Version, d.Family))
			}

			key, err := platform.KeyFor(info)
			if err != nil {
				row("key", warnStyle.Render("none"))
				return err
			}
			row("key", key.String())

			if cat.Supports(key) {
				row("supported", okStyle.Render("yes"))
			} else {
				row("supported", warnStyle.Render("no"))
			}
			if info.IsMusl() {
				fmt.Fprintf(out, "%s %v\n", warnStyle.Render("!"), install.ErrMuslHost)
			}
			return nil
		},
	}
}
