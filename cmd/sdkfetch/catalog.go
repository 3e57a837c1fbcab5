package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/catalog"
)

// catalogView is the printed form of the artifact table.
type catalogView struct {
	Version   string               `json:"version" yaml:"version"`
	BaseURL   string               `json:"base_url" yaml:"base_url"`
	Artifacts []catalog.Descriptor `json:"artifacts" yaml:"artifacts"`
}

func newCatalogCmd(g *globalOptions) *cobra.Command {
	var asJSON, check bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the pinned artifact table",
		Long: `Print the pinned artifact table after applying the user config.

With --check, every platform must have a well-formed SHA-256 digest and
digests that no platform references are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), g)
			if err != nil {
				return err
			}
			cat, err := cfg.Catalog()
			if err != nil {
				return err
			}

			if check {
				return checkCatalog(cmd.OutOrStdout(), cat)
			}

			view := catalogView{
				Version:   cat.Version(),
				BaseURL:   cat.BaseURL(),
				Artifacts: cat.Descriptors(),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			data, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("marshal yaml: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	cmd.Flags().BoolVar(&check, "check", false, "validate digest coverage")
	return cmd
}

func checkCatalog(w io.Writer, cat *catalog.Catalog) error {
	for _, name := range cat.Orphans() {
		fmt.Fprintf(w, "%s digest for %s is not used by any platform\n", warnStyle.Render("!"), name)
	}
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("catalog check failed:\n%w", err)
	}
	fmt.Fprintf(w, "%s %d platforms for SDK %s\n", okStyle.Render("✓"), len(cat.Keys()), cat.Version())
	return nil
}
