package main

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"packsmith/internal/authoring"
	"packsmith/internal/device"
	"packsmith/internal/nav"
	"packsmith/internal/story"
)

// autoHopLimit caps how many auto-play transitions one step may chain,
// packs with transition cycles would otherwise never settle.
const autoHopLimit = 32

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var inputs string
	var auto bool

	cmd := &cobra.Command{
		Use:   "simulate <story.json> | simulate <root> <pack>",
		Short: "Walk a pack the way the device firmware would",
		Long: `Simulate drives a story pack through the firmware navigation rules,
either an authored story document or a pack installed on a device.
Inputs are applied in order; inputs the current node rejects are
reported and skipped.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := loadSimulationPack(args)
			if err != nil {
				return err
			}

			sequence, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			runSimulation(cmd.OutOrStdout(), pack, sequence, auto)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputs, "inputs", "i", "", "Input sequence, e.g. \"ok,right,ok,home\"")
	cmd.Flags().BoolVar(&auto, "auto", false, "Follow auto-play transitions after each step")
	return cmd
}

func loadSimulationPack(args []string) (*story.StoryPack, error) {
	if len(args) == 2 {
		dev, err := device.Open(args[0])
		if err != nil {
			return nil, err
		}
		id, err := resolvePack(dev, args[1])
		if err != nil {
			return nil, err
		}
		return dev.LoadPack(id)
	}
	return authoring.LoadFile(args[0])
}

func parseInputs(spec string) ([]nav.Input, error) {
	words := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	sequence := make([]nav.Input, 0, len(words))
	for _, word := range words {
		in, err := nav.ParseInput(word)
		if err != nil {
			return nil, err
		}
		sequence = append(sequence, in)
	}
	return sequence, nil
}

func runSimulation(out io.Writer, pack *story.StoryPack, sequence []nav.Input, auto bool) {
	st := pack.Stats()
	title := st.Title
	if title == "" {
		title = pack.ID.String()
	}
	fmt.Fprintf(out, "pack: %s (%d stages, %d stories)\n", title, st.Stages, st.Stories)

	sess := nav.NewSession(pack)
	printScene(out, sess.View())
	if auto {
		followAuto(out, sess)
	}

	for _, in := range sequence {
		if _, ok := sess.Apply(in); !ok {
			fmt.Fprintf(out, "\n[%s] not available here\n", in)
			continue
		}
		fmt.Fprintf(out, "\n[%s]\n", in)
		printScene(out, sess.View())
		if auto {
			followAuto(out, sess)
		}
	}
}

func printScene(out io.Writer, v nav.View) {
	fmt.Fprintf(out, "at: %s\n", strings.Join(v.Breadcrumb, " > "))
	if v.Node == nil {
		return
	}
	fmt.Fprintf(out, "node: %s (%s)\n", v.Node.Name, v.Node.Kind)
	if v.Node.Kind == story.KindStory {
		fmt.Fprintln(out, "story playing")
	}
	for i, opt := range v.Options {
		marker := "   "
		if i == v.Selected {
			marker = " > "
		}
		fmt.Fprintf(out, "%s%d. %s\n", marker, i+1, opt.Name)
	}
}

// followAuto chains auto-play transitions the firmware would take without
// user input. A confirm pin of -1 means the node hands control to its
// option list, rendered as entering the menu while landing on the first
// option.
func followAuto(out io.Writer, sess *nav.Session) {
	for i := 0; i < autoHopLimit; i++ {
		v := sess.View()
		if v.Node == nil || !v.Node.Control.Autoplay || len(v.Options) == 0 {
			return
		}
		if v.Node.Confirm != nil && v.Node.Confirm.Option == -1 {
			fmt.Fprintf(out, "auto: enter menu (%d options)\n", len(v.Options))
		} else {
			target := v.Options[0]
			if v.Node.Confirm != nil && v.Node.Confirm.Option >= 0 && v.Node.Confirm.Option < len(v.Options) {
				target = v.Options[v.Node.Confirm.Option]
			}
			fmt.Fprintf(out, "auto: %s\n", target.Name)
		}
		if _, ok := sess.AutoAdvance(); !ok {
			return
		}
		printScene(out, sess.View())
	}
}
