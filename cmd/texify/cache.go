package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"texify/internal/driver"
	"texify/internal/logging"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk inspection cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every cached inspection result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			if err := cache.DropAll(); err != nil {
				return fmt.Errorf("cache clean: %w", err)
			}
			quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed cached results in %s\n", cache.Dir())
			}
			return nil
		},
	})
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.Dir())
			return nil
		},
	})
	return cacheCmd
}

func openCache(cmd *cobra.Command) (*driver.DiskCache, error) {
	logLevel, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	cache, err := driver.OpenDiskCache("texify", logging.NewWithOutput(nil, "texify", logLevel, cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return cache, nil
}
