// Export tool: joins one channel against axes and writes the harmonized
// table to an .xlsx workbook. Missing axis elements stay empty cells, never
// zeros.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/robert-malhotra/go-evedata/evedata"
)

func main() {
	channel := flag.String("channel", "", "channel id to export (default: the file's preferred channel)")
	axes := flag.String("axes", "", "comma-separated axis ids (default: the file's preferred axis)")
	strategy := flag.String("join", "lastfill", "join strategy: lastfill or inner")
	out := flag.String("o", "export.xlsx", "output workbook path")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: eveexport [flags] <file.h5>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := evedata.Open(flag.Arg(0), evedata.WithJoinStrategy(*strategy))
	if err != nil {
		fail("opening measurement: %v", err)
	}
	defer f.Close()

	data := f.PreferredChannel()
	if *channel != "" {
		data = f.Entity(*channel)
	}
	if data == nil {
		fail("no channel selected and no preferred channel in file")
	}

	var selections []evedata.AxisSelection
	var axisNames []string
	if *axes == "" {
		if ax := f.PreferredAxis(); ax != nil {
			selections = append(selections, evedata.AxisSelection{Axis: ax})
			axisNames = append(axisNames, ax.Name())
		}
	} else {
		for _, id := range strings.Split(*axes, ",") {
			ax := f.Entity(strings.TrimSpace(id))
			if ax == nil {
				fail("axis %q not found in file", id)
			}
			selections = append(selections, evedata.AxisSelection{Axis: ax})
			axisNames = append(axisNames, ax.Name())
		}
	}

	res, err := f.Join(data, selections...)
	if err != nil {
		fail("joining: %v", err)
	}

	if err := writeWorkbook(*out, data.Name(), axisNames, res); err != nil {
		fail("writing %s: %v", *out, err)
	}
	fmt.Printf("wrote %d rows to %s\n", len(res.Positions), *out)
}

func writeWorkbook(path, dataName string, axisNames []string, res *evedata.JoinResult) error {
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	header := append([]string{"PosCounter"}, axisNames...)
	header = append(header, dataName)
	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	for row, pos := range res.Positions {
		values := []interface{}{pos}
		for a := range res.Axes {
			if res.Missing[a][row] {
				values = append(values, nil)
			} else {
				values = append(values, res.Axes[a][row])
			}
		}
		values = append(values, res.Data[row])

		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return wb.SaveAs(path)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
