package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"packsmith/internal/device"
	"packsmith/internal/library"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "inspect <root>",
		Short: "Survey a device and report per-pack findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.Open(args[0])
			if err != nil {
				return err
			}
			report, err := dev.Survey()
			if err != nil {
				return err
			}

			printReport(cmd, report)

			if record {
				if err := recordSurvey(ctx, dev, report); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Survey recorded in the library")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Record the survey into the library catalog")
	return cmd
}

func printReport(cmd *cobra.Command, report *device.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Root:       %s\n", report.Root)
	fmt.Fprintf(out, "Generation: %d\n", report.Generation)
	fmt.Fprintf(out, "Firmware:   %s\n", report.Firmware)
	fmt.Fprintf(out, "Serial:     %016d\n", report.Serial)
	fmt.Fprintf(out, "Pack key:   %s\n", availability(report.KeyAvailable))

	if len(report.Packs) == 0 {
		fmt.Fprintln(out, "No packs listed")
		return
	}

	rows := make([][]string, 0, len(report.Packs))
	for _, p := range report.Packs {
		rows = append(rows, []string{
			p.Ref,
			p.Title,
			strconv.Itoa(p.NodeCount),
			authenticity(p.Authentic),
			strings.Join(p.Problems, "; "),
		})
	}
	table := renderTable(
		[]string{"Ref", "Title", "Nodes", "Authentic", "Problems"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
	fmt.Fprintln(out, table)

	if report.MissingContent > 0 {
		fmt.Fprintf(out, "%d listed pack(s) without content\n", report.MissingContent)
	}
	for _, orphan := range report.Orphans {
		fmt.Fprintf(out, "orphan content directory: %s\n", orphan)
	}
}

func recordSurvey(ctx *commandContext, dev *device.Device, report *device.Report) error {
	return ctx.withLibrary(func(lib *library.Library) error {
		now := time.Now().Unix()
		err := lib.RecordDevice(&library.Device{
			Serial:     fmt.Sprintf("%016d", report.Serial),
			Generation: report.Generation,
			Firmware:   report.Firmware,
			FirstSeen:  now,
			LastSeen:   now,
		})
		if err != nil {
			return err
		}

		for _, p := range report.Packs {
			if !p.Installed {
				continue
			}
			var fingerprint string
			if bundle, err := dev.ReadBundle(p.ID); err == nil {
				fingerprint = library.Fingerprint(bundle.NodeIndex)
			}
			err := lib.RecordPack(&library.Pack{
				ID:          p.ID,
				Ref:         p.Ref,
				Title:       p.Title,
				NodeCount:   p.NodeCount,
				Authentic:   p.Authentic,
				Fingerprint: fingerprint,
				RecordedAt:  now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func authenticity(authentic *bool) string {
	if authentic == nil {
		return "unknown"
	}
	return yesNo(*authentic)
}
