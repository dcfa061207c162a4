package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/law-makers/rclookup/pkg/models"
)

func sampleResults() []models.Result {
	return []models.Result{
		{
			Success:   true,
			VehicleNo: "MH12AB1234",
			Data: models.Record{
				"Vehicle No": "MH12AB1234",
				"Owner Name": "Jane Doe",
				"Fuel Type":  models.NotFound,
			},
			Attempts: 1,
		},
		{
			VehicleNo: "DL3CAB12",
			Message:   "Website blocking detected. Please try again later.",
			Attempts:  3,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResults()[0], false); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got["vehicle_no"] != "MH12AB1234" || got["success"] != true {
		t.Errorf("Unexpected JSON: %s", buf.String())
	}
	if strings.Contains(buf.String(), "\n  ") {
		t.Error("Expected compact output")
	}

	buf.Reset()
	WriteJSON(&buf, sampleResults()[0], true)
	if !strings.Contains(buf.String(), "\n  \"success\"") {
		t.Errorf("Expected indented output, got %s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	keys := []string{"Vehicle No", "Owner Name", "Fuel Type"}
	if err := WriteCSV(&buf, sampleResults(), keys); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := []string{
		"vehicle_no,success,message,Vehicle No,Owner Name,Fuel Type",
		"MH12AB1234,true,,MH12AB1234,Jane Doe,Not Found",
		"DL3CAB12,false,Website blocking detected. Please try again later.,,,",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRecordTable(t *testing.T) {
	var buf bytes.Buffer
	WriteRecordTable(&buf, sampleResults()[0], []string{"Vehicle No", "Owner Name", "Fuel Type"}, false)

	out := buf.String()
	for _, s := range []string{"Field", "Value", "Owner Name", "Jane Doe", models.NotFound, "╭"} {
		if !strings.Contains(out, s) {
			t.Errorf("Expected table to contain %q, got:\n%s", s, out)
		}
	}
	if strings.Index(out, "Vehicle No") > strings.Index(out, "Owner Name") {
		t.Error("Expected rows in key order")
	}
}

func TestWriteRecordTable_Failure(t *testing.T) {
	var buf bytes.Buffer
	WriteRecordTable(&buf, sampleResults()[1], []string{"Vehicle No"}, false)
	if !strings.Contains(buf.String(), "Website blocking detected") {
		t.Errorf("Expected failure message, got:\n%s", buf.String())
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, sampleResults(), []string{"Owner Name"}, false)

	out := buf.String()
	if !strings.Contains(out, "1/2 ok") {
		t.Errorf("Expected footer with success count, got:\n%s", out)
	}
	if !strings.Contains(out, "DL3CAB12") || !strings.Contains(out, "Jane Doe") {
		t.Errorf("Expected both rows, got:\n%s", out)
	}
}

func TestCleanHTML(t *testing.T) {
	in := `<html><head><script>alert(1)</script><style>p{}</style></head>
<body><div class="x" id="y"><a href="/a" onclick="z()">link</a><img src="i.png" alt="i" width="3"></div>
<form><input name="q"></form></body></html>`

	out, err := CleanHTML(in)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}
	for _, bad := range []string{"<script", "<style", "<form", "onclick", "class=", "width="} {
		if strings.Contains(out, bad) {
			t.Errorf("Expected %q to be removed, got %s", bad, out)
		}
	}
	for _, good := range []string{`href="/a"`, `src="i.png"`, `alt="i"`} {
		if !strings.Contains(out, good) {
			t.Errorf("Expected %q to be kept, got %s", good, out)
		}
	}
}

func TestToMarkdown(t *testing.T) {
	in := `<html><body><h1>Vehicle</h1><p>Owner <a href="/rc-search/X">details</a></p></body></html>`

	out, err := ToMarkdown(in, "https://vahanx.in/rc-search/MH12AB1234")
	if err != nil {
		t.Fatalf("ToMarkdown failed: %v", err)
	}
	if !strings.Contains(out, "# Vehicle") {
		t.Errorf("Expected heading, got %s", out)
	}
	if !strings.Contains(out, "[details](https://vahanx.in/rc-search/X)") {
		t.Errorf("Expected resolved link, got %s", out)
	}
}
