package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type sheetFlags struct {
	out  string
	base string
}

func newFloorPlanSheetCmd() *cobra.Command {
	var flags sheetFlags

	cmd := &cobra.Command{
		Use:   "floorplan-sheet <floorplan-id>",
		Short: "Render a printable PDF of a floorplan with its objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFloorPlanSheet(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", defaultSheetFile, "Output file")
	cmd.Flags().StringVar(&flags.base, "base-url", sheetLinkBase, "Server URL encoded in the QR code")

	return cmd
}

func runFloorPlanSheet(cmd *cobra.Command, id string, flags sheetFlags) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		fp, err := d.Service.GetFloorPlan(cmd.Context(), id)
		if err != nil {
			return err
		}
		link := strings.TrimSuffix(flags.base, "/") + "/api/loci/locations/" + fp.LocationID
		pdf, err := d.Service.FloorPlanSheet(cmd.Context(), id, link)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.out, pdf, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", flags.out, err)
		}
		fmt.Printf("Wrote %s (%s)\n", flags.out, fp.String())
		return nil
	})
}
