package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"packsmith/internal/device"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List mounted storytellers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if watch {
				return watchDevices(cmd, cfg.Device.MountParents, cfg.Device.WatchIntervalMs)
			}

			logger := loggerFromContext(cmd.Context())
			roots := device.Discover(cfg.Device.MountParents...)

			var rows [][]string
			for _, root := range roots {
				dev, err := device.Open(root)
				if err != nil {
					logger.Warn("skipping device", "root", root, "error", err)
					continue
				}
				rows = append(rows, []string{
					dev.Root,
					strconv.Itoa(dev.Index.Generation()),
					dev.Firmware(),
					fmt.Sprintf("%016d", dev.Index.SerialNumber),
					strconv.Itoa(len(dev.Packs)),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices found")
				return nil
			}
			table := renderTable(
				[]string{"Root", "Gen", "Firmware", "Serial", "Packs"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and report devices as they arrive")
	return cmd
}

func watchDevices(cmd *cobra.Command, parents []string, intervalMs int) error {
	logger := loggerFromContext(cmd.Context())

	watcher, err := device.NewWatcher(parents, time.Duration(intervalMs)*time.Millisecond)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("watching for devices; interrupt to stop")
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case arrival, ok := <-watcher.Arrivals():
			if !ok {
				return nil
			}
			dev, err := device.Open(arrival.Root)
			if err != nil {
				logger.Warn("arrived root would not open", "root", arrival.Root, "error", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "device arrived: %s (gen %d, %d packs)\n",
				dev.Root, dev.Index.Generation(), len(dev.Packs))
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
