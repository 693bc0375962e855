// Command matchi-verify is the CLI front end of the verifier: it loads a
// netlist, optionally patches it with a YAML annotation overlay, replays a
// VCD trace through the top-level Simulator, and prints a report. Open
// file handles are released through tebeka/atexit on every exit path.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/cassiersg/matchi-go/checks"
	"github.com/cassiersg/matchi-go/metrics"
	"github.com/cassiersg/matchi-go/netlist"
	"github.com/cassiersg/matchi-go/report"
	"github.com/cassiersg/matchi-go/simulator"
	"github.com/cassiersg/matchi-go/vcdsink"
	"github.com/cassiersg/matchi-go/vcdsrc"
	"github.com/cassiersg/matchi-go/vfyerr"
	"github.com/cassiersg/matchi-go/vlog"
)

var (
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "matchi-verify",
	Short:   "Symbolic side-channel verifier for masked gate-level netlists",
	Version: version,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Args:  cobra.NoArgs,
	Short: "Replay a VCD trace through a netlist and check masking safety",
	PreRun: func(cmd *cobra.Command, args []string) {
		vlog.Init(verbose)
	},
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("netlist", "", "path to the netlist JSON file (required)")
	verifyCmd.Flags().String("vcd", "", "path to the VCD stimulus trace (required)")
	verifyCmd.Flags().String("tb", "", "testbench scope name prefixing --dut in the VCD hierarchy")
	verifyCmd.Flags().String("dut", "", "dotted instance path of the gadget under test within --tb")
	verifyCmd.Flags().String("gname", "", "netlist module name of the gadget under test (required)")
	verifyCmd.Flags().String("annotations-overlay", "", "YAML annotation overlay to merge before construction")
	verifyCmd.Flags().String("output-vcd", "", "write a debug VCD with per-cycle symbolic state to this path")
	verifyCmd.Flags().Bool("no-check-state-cleared", false, "disable the per-wire sensitivity check")
	verifyCmd.Flags().Bool("no-check-transitions", false, "disable the gate transition-leakage check")
	verifyCmd.Flags().Int("max-cycles", -1, "stop after this many cycles (default: the whole trace)")
	verifyCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	verifyCmd.Flags().Bool("json", false, "accepted but not read: the final report is always printed as tables")
	_ = verifyCmd.MarkFlagRequired("netlist")
	_ = verifyCmd.MarkFlagRequired("vcd")
	_ = verifyCmd.MarkFlagRequired("gname")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func runVerify(cmd *cobra.Command, args []string) error {
	netlistPath, _ := cmd.Flags().GetString("netlist")
	vcdPath, _ := cmd.Flags().GetString("vcd")
	tbName, _ := cmd.Flags().GetString("tb")
	dutPath, _ := cmd.Flags().GetString("dut")
	gname, _ := cmd.Flags().GetString("gname")
	overlayPath, _ := cmd.Flags().GetString("annotations-overlay")
	outputVCD, _ := cmd.Flags().GetString("output-vcd")
	noStateCleared, _ := cmd.Flags().GetBool("no-check-state-cleared")
	noTransitions, _ := cmd.Flags().GetBool("no-check-transitions")
	maxCycles, _ := cmd.Flags().GetInt("max-cycles")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	nl, err := loadNetlist(netlistPath, overlayPath)
	if err != nil {
		return err
	}

	checkCfg := checks.DefaultConfig()
	checkCfg.CheckStateCleared = !noStateCleared
	checkCfg.CheckTransitions = !noTransitions

	provider := vcdsrc.Open(vcdPath)
	sim, err := simulator.New(nl, tbName, dutPath, gname, provider, checkCfg)
	if err != nil {
		return err
	}

	if outputVCD != "" {
		f, err := os.Create(outputVCD)
		if err != nil {
			return vfyerr.Config(vfyerr.Frame{}, "creating debug VCD %s: %v", outputVCD, err)
		}
		atexit.Register(func() { f.Close() })
		order := 1
		if mod, ok := nl.ModuleByName(gname); ok && mod.Gadget != nil {
			order = mod.Gadget.Order
		}
		sink, err := vcdsink.New(f, sim.Evaluator().Module(), order)
		if err != nil {
			return vfyerr.Wrap(vfyerr.KindConfig, vfyerr.Frame{}, err, "initializing debug VCD writer")
		}
		sim.SetSink(sink)
	}

	var collector *metrics.Collector
	if metricsAddr != "" {
		collector = metrics.New()
		go func() {
			if err := collector.Serve(cmd.Context(), metricsAddr); err != nil && verbose {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	runErr := sim.Run(maxCycles)
	cyclesRun := sim.State().CurrentCycle + 1
	if collector != nil {
		for c := 0; c < cyclesRun; c++ {
			collector.CycleCompleted(c)
		}
	}

	report.Write(os.Stdout, report.Outcome{
		Gadget:    gname,
		CyclesRun: cyclesRun,
		Err:       runErr,
		Warnings:  sim.Warnings(),
	})

	if runErr != nil {
		return runErr
	}
	return nil
}

func loadNetlist(netlistPath, overlayPath string) (*netlist.Netlist, error) {
	if overlayPath == "" {
		return netlist.LoadFile(netlistPath)
	}
	data, err := os.ReadFile(netlistPath)
	if err != nil {
		return nil, vfyerr.Config(vfyerr.Frame{}, "reading netlist %s: %v", netlistPath, err)
	}
	var raw netlist.RawNetlist
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, vfyerr.Config(vfyerr.Frame{}, "parsing netlist %s: %v", netlistPath, err)
	}
	overlay, err := netlist.LoadOverlayFile(overlayPath)
	if err != nil {
		return nil, err
	}
	netlist.ApplyOverlay(&raw, overlay)
	return netlist.Build(&raw)
}
