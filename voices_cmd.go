package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saypipe/saypipe/internal/synth"
)

var languageFilter string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List available synthesis voices",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		catalog := synth.NewCatalog(nil)
		voices, err := catalog.List(languageFilter)
		if err != nil {
			return err
		}
		if len(voices) == 0 {
			return fmt.Errorf("no voices match language %q", languageFilter)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLANGUAGE\tGENDER")
		for _, v := range voices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.DisplayName, v.Language, v.Gender)
		}
		return w.Flush()
	},
}

func init() {
	voicesCmd.Flags().StringVarP(&languageFilter, "language", "l", "", "filter by language prefix, e.g. en or zh-CN")
}
