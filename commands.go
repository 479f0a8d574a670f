package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/updater"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Make sure yt-dlp is available, downloading it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := updater.Locate(cmd.Context(), config.Instance())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Run the self update of yt-dlp",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := updater.Update(cmd.Context(), config.Instance())
			if report != "" {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			return enc.Encode(config.Instance())
		},
	}
}
