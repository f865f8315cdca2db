package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"packsmith/internal/codec"
	"packsmith/internal/device"
	"packsmith/internal/story"
)

func newPackCommand(ctx *commandContext) *cobra.Command {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Inspect and manage installed packs",
	}

	packCmd.AddCommand(newPackShowCommand(ctx))
	packCmd.AddCommand(newPackVerifyCommand(ctx))
	packCmd.AddCommand(newPackInstallCommand(ctx))
	packCmd.AddCommand(newPackRemoveCommand(ctx))

	return packCmd
}

// resolvePack maps a command line argument to an installed pack: a full
// UUID, or the 8-hex reference the device names content directories with.
func resolvePack(dev *device.Device, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	ref := strings.ToUpper(strings.TrimSpace(arg))
	for _, id := range dev.Packs {
		if codec.Reference(id) == ref {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("pack %q not listed on device", arg)
}

func newPackShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <root> <pack>",
		Short: "Show an installed pack's story graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.Open(args[0])
			if err != nil {
				return err
			}
			id, err := resolvePack(dev, args[1])
			if err != nil {
				return err
			}
			pack, err := dev.LoadPack(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := pack.Stats()
			title := st.Title
			if title == "" {
				title = codec.Reference(id)
			}
			fmt.Fprintf(out, "Title:   %s\n", title)
			fmt.Fprintf(out, "Pack:    %s\n", id)
			fmt.Fprintf(out, "Night:   %s\n", yesNo(st.Night))
			fmt.Fprintf(out, "Graph:   %d stages (%d menus, %d stories), %d actions, depth %d\n",
				st.Stages, st.Menus, st.Stories, st.Actions, st.MaxDepth)

			rows := make([][]string, 0, st.Stages)
			for _, stage := range pack.Stages() {
				rows = append(rows, []string{
					stage.Name,
					stage.Kind.String(),
					controlSummary(stage.Control),
					strconv.Itoa(len(pack.OptionsOf(stage))),
				})
			}
			table := renderTable(
				[]string{"Stage", "Kind", "Controls", "Options"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

// controlSummary renders enabled control flags as a compact letter string,
// one letter per flag: wheel, ok, home, pause, autoplay.
func controlSummary(c story.ControlFlags) string {
	var b strings.Builder
	letter := func(on bool, r rune) {
		if on {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	letter(c.Wheel, 'w')
	letter(c.OK, 'o')
	letter(c.Home, 'h')
	letter(c.Pause, 'p')
	letter(c.Autoplay, 'a')
	return b.String()
}

func newPackVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <root> [pack]",
		Short: "Check pack authenticity against the device key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.Open(args[0])
			if err != nil {
				return err
			}

			targets := dev.Packs
			if len(args) == 2 {
				id, err := resolvePack(dev, args[1])
				if err != nil {
					return err
				}
				targets = []uuid.UUID{id}
			}
			if len(targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packs listed")
				return nil
			}

			rows := make([][]string, 0, len(targets))
			for _, id := range targets {
				row := []string{codec.Reference(id), "", ""}
				authentic, err := dev.VerifyPack(id)
				if err != nil {
					row[1] = "error"
					row[2] = err.Error()
				} else {
					row[1] = yesNo(authentic)
				}
				rows = append(rows, row)
			}
			table := renderTable(
				[]string{"Ref", "Authentic", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newPackInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install <root> <pack-uuid> <dir>",
		Short: "Install a pack directory onto a device",
		Long: `Install copies a prepared content directory onto the device, reseals
the check token with the device key and appends the pack to the index.
The directory must hold the pack blobs (ni, li, ri, si, bt, md) and the
rf/sf asset trees.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.Open(args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("parse pack uuid: %w", err)
			}

			logger := loggerFromContext(cmd.Context())
			logger.Info("installing pack", "pack", codec.Reference(id), "from", args[2])

			if err := dev.Install(args[2], id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s as %s\n", id, codec.Reference(id))
			return nil
		},
	}
}

func newPackRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <root> <pack>",
		Short: "Remove an installed pack from a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.Open(args[0])
			if err != nil {
				return err
			}
			id, err := resolvePack(dev, args[1])
			if err != nil {
				return err
			}
			if err := dev.Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", codec.Reference(id))
			return nil
		},
	}
}
