package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"packsmith/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Browse the local pack catalog",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryDevicesCommand(ctx))
	libraryCmd.AddCommand(newLibraryForgetCommand(ctx))

	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded packs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(lib *library.Library) error {
				packs, err := lib.Packs()
				if err != nil {
					return err
				}
				if len(packs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
					return nil
				}

				rows := make([][]string, 0, len(packs))
				for _, p := range packs {
					rows = append(rows, []string{
						p.Ref,
						p.Title,
						strconv.Itoa(p.NodeCount),
						authenticity(p.Authentic),
						time.Unix(p.RecordedAt, 0).Format("2006-01-02 15:04"),
					})
				}
				table := renderTable(
					[]string{"Ref", "Title", "Nodes", "Authentic", "Recorded"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newLibraryDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices recorded in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(lib *library.Library) error {
				devices, err := lib.Devices()
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
					return nil
				}

				rows := make([][]string, 0, len(devices))
				for _, d := range devices {
					rows = append(rows, []string{
						d.Serial,
						strconv.Itoa(d.Generation),
						d.Firmware,
						time.Unix(d.FirstSeen, 0).Format("2006-01-02"),
						time.Unix(d.LastSeen, 0).Format("2006-01-02"),
					})
				}
				table := renderTable(
					[]string{"Serial", "Gen", "Firmware", "First seen", "Last seen"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newLibraryForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <pack-uuid>",
		Short: "Drop a pack from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse pack uuid: %w", err)
			}
			return ctx.withLibrary(func(lib *library.Library) error {
				if err := lib.Forget(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", id)
				return nil
			})
		},
	}
}
