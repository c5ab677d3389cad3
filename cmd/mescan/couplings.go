package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvasilev/mescan/internal/couplings"
)

var couplingsCmd = &cobra.Command{
	Use:   "couplings",
	Short: "Inspect the coupling registry and validate scenario files",
	Long: `Couplings manages the anomalous coupling registry. Use subcommands to
list the known coupling names, show where a name lands in the coupling
arrays, or validate a scenario file before scanning with it.`,
}

// --- list subcommand ---

var couplingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known coupling names with their slot metadata",
	RunE:  runCouplingsList,
}

func runCouplingsList(cmd *cobra.Command, args []string) error {
	block, _ := cmd.Flags().GetString("block")

	var listed int
	fmt.Fprintf(os.Stdout, "%-18s  %-10s  %-8s  %5s  %7s\n",
		"Name", "Block", "Kind", "Index", "Channel")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 56))

	for _, name := range couplings.Names() {
		slot, _ := couplings.Lookup(name)
		if block != "" && slot.Block != couplings.Block(block) {
			continue
		}
		channel := "-"
		if hasChannel(slot.Block) {
			channel = strconv.Itoa(slot.Channel)
		}
		fmt.Fprintf(os.Stdout, "%-18s  %-10s  %-8s  %5d  %7s\n",
			name, slot.Block, slot.Kind, slot.Index, channel)
		listed++
	}

	if listed == 0 {
		return fmt.Errorf("no couplings in block %q", block)
	}
	fmt.Fprintf(os.Stdout, "\n%d coupling(s)\n", listed)
	return nil
}

// --- show subcommand ---

var couplingsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show where one coupling name lands in the coupling arrays",
	RunE:  runCouplingsShow,
}

var channelNames = map[int]string{
	couplings.ChannelQ1Sq:  "q1sq",
	couplings.ChannelQ2Sq:  "q2sq",
	couplings.ChannelQ12Sq: "q12sq",
}

func runCouplingsShow(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a coupling name (see: mescan couplings list)")
	}
	name := args[0]

	slot, ok := couplings.Lookup(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, couplings.ErrUnknown)
	}

	fmt.Fprintf(os.Stdout, "name:    %s\n", name)
	fmt.Fprintf(os.Stdout, "block:   %s\n", slot.Block)
	fmt.Fprintf(os.Stdout, "kind:    %s\n", slot.Kind)
	fmt.Fprintf(os.Stdout, "index:   %d\n", slot.Index)
	if hasChannel(slot.Block) {
		fmt.Fprintf(os.Stdout, "channel: %d (%s)\n", slot.Channel, channelNames[slot.Channel])
	}
	return nil
}

// --- check subcommand ---

var couplingsCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a scenario file against the coupling registry",
	Long: `Check parses a YAML scenario file, resolves every coupling name against
the registry, and verifies that real- and integer-valued slots are not
assigned complex values. Scanning with a file that passes check will not
fail on coupling assignment.`,
	RunE: runCouplingsCheck,
}

func runCouplingsCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a scenario file to check")
	}

	scenarios, err := couplings.LoadScenarios(args[0])
	if err != nil {
		return err
	}

	for _, sc := range scenarios {
		fmt.Fprintf(os.Stdout, "ok  %s (%d coupling(s))\n", sc.Name, len(sc.Values))
	}
	fmt.Fprintf(os.Stdout, "\n%d scenario(s) valid\n", len(scenarios))
	return nil
}

// --- shared helpers ---

func hasChannel(b couplings.Block) bool {
	switch b {
	case couplings.BlockLambdaZ, couplings.BlockLambdaW,
		couplings.BlockCLambdaZ, couplings.BlockCLambdaW:
		return true
	}
	return false
}

func init() {
	couplingsListCmd.Flags().String("block", "", "filter by coupling block (e.g. hzz, hww, gvv)")

	couplingsCmd.AddCommand(couplingsListCmd)
	couplingsCmd.AddCommand(couplingsShowCmd)
	couplingsCmd.AddCommand(couplingsCheckCmd)

	rootCmd.AddCommand(couplingsCmd)
}
