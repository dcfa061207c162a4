package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/law-makers/rclookup/pkg/models"
)

// WriteCSV writes one row per result. The fixed columns come first, then one
// column per field key in the given order. Failed lookups leave the field
// columns empty.
func WriteCSV(w io.Writer, results []models.Result, keys []string) error {
	writer := csv.NewWriter(w)

	headers := append([]string{"vehicle_no", "success", "message"}, keys...)
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, res := range results {
		row := make([]string, 0, len(headers))
		row = append(row, res.VehicleNo, strconv.FormatBool(res.Success), res.Message)
		for _, k := range keys {
			row = append(row, res.Data[k])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
