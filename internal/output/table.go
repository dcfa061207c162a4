package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/law-makers/rclookup/pkg/models"
)

// WriteRecordTable renders a single result as a Field/Value table in key order
func WriteRecordTable(w io.Writer, res models.Result, keys []string, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(res.VehicleNo)
	t.AppendHeader(table.Row{"Field", "Value"})

	if !res.Success {
		t.AppendRow(table.Row{"Error", res.Message})
	}
	for _, k := range keys {
		v, ok := res.Data[k]
		if !ok {
			continue
		}
		if v == models.NotFound && color {
			v = text.FgHiBlack.Sprint(v)
		}
		t.AppendRow(table.Row{k, v})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

// WriteSummaryTable renders one line per result with a handful of key fields
func WriteSummaryTable(w io.Writer, results []models.Result, keys []string, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{"Vehicle No", "Status"}
	for _, k := range keys {
		header = append(header, k)
	}
	t.AppendHeader(header)

	ok := 0
	for _, res := range results {
		status := "ok"
		if !res.Success {
			status = res.Message
			if color {
				status = text.FgRed.Sprint(status)
			}
		} else {
			ok++
		}
		row := table.Row{res.VehicleNo, status}
		for _, k := range keys {
			row = append(row, res.Data[k])
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"Total", fmt.Sprintf("%d/%d ok", ok, len(results))})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
