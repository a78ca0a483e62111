package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semtasks/config"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialise configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:         "init",
			Short:       "Write the default user config (~/.config/semtasks/config.yaml) if missing",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipSetup: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				path, created, err := config.NewLoader(a.logger).EnsureUserConfig()
				if err != nil {
					return fmt.Errorf("init user config: %w", err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Exists %s\n", path)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration after all layers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
	)

	return cmd
}
