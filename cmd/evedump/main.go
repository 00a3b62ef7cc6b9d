// Diagnostic tool for inspecting EVE measurement files
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/evedata"
)

func main() {
	verbose := flag.Bool("v", false, "log mapping diagnostics")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: evedump [-v] <file.h5>")
		os.Exit(1)
	}

	opts := []evedata.Option{}
	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			opts = append(opts, evedata.WithLogger(log))
		}
	}

	filename := flag.Arg(0)
	fmt.Printf("=== %s ===\n\n", filename)

	f, err := evedata.Open(filename, opts...)
	if err != nil {
		fmt.Printf("ERROR: failed to open file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	meta := f.Metadata()
	fmt.Printf("EVEH5 version:  %s\n", meta.EVEH5Version)
	fmt.Printf("SCML version:   %s\n", meta.XMLVersion)
	fmt.Printf("Location:       %s\n", meta.Location)
	fmt.Printf("Start:          %s\n", meta.StartTime)
	if !meta.EndTime.IsZero() {
		fmt.Printf("End:            %s\n", meta.EndTime)
	}
	if meta.Simulation {
		fmt.Println("Simulation:     yes")
	}
	fmt.Println()

	if desc := f.Description(); desc != nil {
		fmt.Printf("Scan description (SCML %s):\n", desc.Version)
		dumpModules(desc, f)
	} else {
		fmt.Println("No scan description; positions unknown.")
	}

	fmt.Printf("\nMonitors: %d\n", len(f.Monitors()))
	for _, m := range f.Monitors() {
		fmt.Printf("  %s (%s)\n", m.Name(), m.Metadata().PV)
	}
}

func dumpModules(desc *evedata.ScanDescription, f *evedata.File) {
	root := desc.Root()
	if root == nil {
		fmt.Println("  (no root module)")
		return
	}
	dumpModule(desc, f, root, "  ")
}

func dumpModule(desc *evedata.ScanDescription, f *evedata.File, m *evedata.ScanModule, indent string) {
	fmt.Printf("%sModule %d %q (%s): %d positions/pass, %d total\n",
		indent, m.ID, m.Name, m.Type, m.PositionsPerPass, m.TotalPositions)
	if len(m.PositionCounts) > 0 {
		fmt.Printf("%s  positions: %s\n", indent, previewInts(m.PositionCounts, 12))
	}
	for _, d := range f.ModuleData(m.ID) {
		fmt.Printf("%s  %s %s", indent, d.Kind(), d.ID())
		if d.Kind() == evedata.KindChannel {
			fmt.Printf(" [%s]", d.Mode())
			if d.Normalized() {
				fmt.Printf(" /%s", d.NormalizeID())
			}
		}
		fmt.Println()
	}
	if nested := desc.Module(m.NestedID); nested != nil {
		dumpModule(desc, f, nested, indent+"    ")
	}
	if appended := desc.Module(m.AppendedID); appended != nil {
		dumpModule(desc, f, appended, indent)
	}
}

func previewInts(v []int64, max int) string {
	if len(v) <= max {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%v... (%d total)", v[:max], len(v))
}
