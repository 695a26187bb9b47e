package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kavirubc/cofound/internal/config"
	"github.com/Kavirubc/cofound/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(noColor))

			cfgPath := config.FindConfigPath(cfgFile)
			if cfgPath == "" {
				return fmt.Errorf("config file not found")
			}

			p.Print("Validating config: %s", cfgPath)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			errs := config.Validate(cfg)
			if len(errs) > 0 {
				p.Print("\nValidation errors:")
				for _, e := range errs {
					p.Print("  - %v", e)
				}
				return fmt.Errorf("configuration is invalid")
			}

			p.Success("Configuration is valid!")
			p.Print("  - API: %s (timeout %s)", cfg.API.BaseURL, cfg.API.Timeout())
			p.Print("  - Discovery: initial %d, prefetch %d, low-water mark %d",
				cfg.Discovery.InitialBatch, cfg.Discovery.PrefetchBatch, cfg.Discovery.LowWaterMark)
			p.Print("  - Swipe threshold: %.0fpx", cfg.Gesture.SwipeThreshold)
			if cfg.Outbox.Enabled {
				p.Print("  - Outbox: %s, %d attempts", cfg.Outbox.Backend, cfg.Outbox.MaxAttempts)
			} else {
				p.Print("  - Outbox: disabled")
			}
			p.Print("  - Session: %s", cfg.Session.Path)

			return nil
		},
	}
}
