package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/recship/internal/cliconfig"
	"github.com/bft-labs/recship/pkg/dom"
	"github.com/bft-labs/recship/pkg/recship"
	"github.com/bft-labs/recship/pkg/selector"
	"github.com/bft-labs/recship/pkg/state"
)

func newLastCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the last recorded session as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd, cfg, *cfgPath, nil); err != nil {
				return err
			}
			repo, err := recship.OpenRepository(cmd.Context(), cfg.Store, cfg.StateDir)
			if err != nil {
				return err
			}
			fb := state.NewFallback(repo, nil)
			defer fb.Close()

			raw, err := fb.LastSessionRaw(cmd.Context())
			if err != nil {
				return err
			}
			if raw == nil {
				return errors.New("no session recorded yet")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}

func newSelectorCommand() *cobra.Command {
	var file, id string
	cmd := &cobra.Command{
		Use:   "selector",
		Short: "Print the selector recship would record for an element in an HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := dom.ParseHTML(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			el := doc.FindByID(id)
			if el == nil {
				return fmt.Errorf("no element with id %q", id)
			}
			sel := selector.Synthesize(el)
			if sel == selector.Empty {
				return fmt.Errorf("element %q has no class on its path to body and would not be recorded", id)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sel)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "HTML file to read")
	cmd.Flags().StringVar(&id, "id", "", "id of the target element")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
