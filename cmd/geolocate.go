package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geolocateCmd = &cobra.Command{
	Use:   "geolocate URL...",
	Short: "Resolve URLs to approximate server locations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, closeGeo, err := initGeo(cfg.Geo)
		if err != nil {
			return err
		}
		defer closeGeo() //nolint:errcheck

		results := resolver.ResolveAll(cmd.Context(), args)
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(geolocateCmd)
}
