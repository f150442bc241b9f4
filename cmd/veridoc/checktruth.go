package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veridoc/veridoc/internal/truth"
)

var checkTruthCmd = &cobra.Command{
	Use:   "check-truth [family...]",
	Short: "Load and verify truth-data families",
	Long: `Parse the named truth-data families and report index statistics.

With no arguments, every <family>.yaml under the configured truth
directory is checked. A family that fails to parse or violates the
truth-data schema is reported and the command exits non-zero.`,
	RunE: runCheckTruth,
}

func runCheckTruth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cache := truth.NewCache(cfg.Truth.Dir)

	families := args
	if len(families) == 0 {
		families, err = cache.Discover()
		if err != nil {
			return err
		}
	}
	if len(families) == 0 {
		return fmt.Errorf("no truth families found under %s", cache.Dir())
	}

	bad := 0
	for _, family := range families {
		ix, err := cache.Load(family)
		if err != nil {
			bad++
			color.Red("✗ %s: %v", family, err)
			continue
		}

		fmt.Printf("%s %s: %d plugin(s), %d pattern(s)\n",
			color.GreenString("✓"), family, ix.PluginCount(), ix.PatternCount())
		fmt.Printf("    hash %s\n", ix.Hash())
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d families failed verification", bad, len(families))
	}
	return nil
}
