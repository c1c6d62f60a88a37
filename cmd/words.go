package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geowave/internal/config"
	"github.com/sells-group/geowave/internal/model"
)

var wordsFormat string

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Inspect accumulated image search records",
}

var wordsShowCmd = &cobra.Command{
	Use:   "show QUERY",
	Short: "Print the stored record for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		if cfg.Store.Driver == config.DriverMemory {
			return eris.New("words show needs a persistent store: set store.driver to sqlite or postgres")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return eris.Errorf("no record for %q", args[0])
		}
		return writeRecord(cmd.OutOrStdout(), rec, wordsFormat)
	},
}

func writeRecord(w io.Writer, rec *model.QueryRecord, format string) error {
	switch format {
	case "json", "":
		return printJSON(w, rec)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "encode output")
		}
		return enc.Close()
	default:
		return eris.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func init() {
	wordsShowCmd.Flags().StringVar(&wordsFormat, "format", "json", "output format: json or yaml")
	wordsCmd.AddCommand(wordsShowCmd)
	rootCmd.AddCommand(wordsCmd)
}
