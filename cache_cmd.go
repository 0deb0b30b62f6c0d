package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saypipe/saypipe/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List cached artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}

		entries := store.Entries()
		if len(entries) == 0 {
			fmt.Println("cache is empty:", store.Dir())
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tCREATED\tPLAYS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				e.Key[:12], humanize.Bytes(uint64(e.SizeBytes)), humanize.Time(e.CreatedAt), e.PlayCount)
		}
		return w.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("cache cleared:", store.Dir())
		return nil
	},
}

func openStore(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.ResolveCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.New(dir, cfg.MaxCacheEntries, cfg.RetentionWindow)
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
