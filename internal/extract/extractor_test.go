package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/law-makers/rclookup/internal/testutil"
	"github.com/law-makers/rclookup/pkg/models"
)

func TestExtract_TrimsValue(t *testing.T) {
	body := `<html><body><div><span>Owner Name</span><p>  Jane Doe  </p></div></body></html>`
	specs := []FieldSpec{{Key: "Owner Name", Label: "Owner Name"}}

	record, err := ExtractHTML(body, specs)
	if err != nil {
		t.Fatalf("ExtractHTML failed: %v", err)
	}

	if record["Owner Name"] != "Jane Doe" {
		t.Errorf("Expected 'Jane Doe', got %q", record["Owner Name"])
	}
}

func TestExtract_FieldIndependence(t *testing.T) {
	body := testutil.ResultPage(
		testutil.Field{Label: "Registration Number", Value: "MH12AB1234"},
		testutil.Field{Label: "Owner Name", Value: "Jane Doe"},
		testutil.Field{Label: "Fuel Type", Value: "DIESEL"},
	)
	specs := []FieldSpec{
		{Key: "Vehicle No", Label: "Registration Number"},
		{Key: "Owner Name", Label: "Owner Name"},
		{Key: "Insurance Upto", Label: "Insurance Upto"},
		{Key: "Fuel Type", Label: "Fuel Type"},
	}

	record, err := ExtractHTML(body, specs)
	if err != nil {
		t.Fatalf("ExtractHTML failed: %v", err)
	}

	want := models.Record{
		"Vehicle No":     "MH12AB1234",
		"Owner Name":     "Jane Doe",
		"Insurance Upto": models.NotFound,
		"Fuel Type":      "DIESEL",
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SentinelCompleteness(t *testing.T) {
	specs := Defaults()
	bodies := []string{
		"",
		"<html></html>",
		testutil.ChallengePage(),
		testutil.StandardPage("KA01MJ9999"),
		`<span>Owner Name</span>`,
	}

	for _, body := range bodies {
		record, _ := ExtractHTML(body, specs)
		if len(record) != len(specs) {
			t.Errorf("Expected %d keys, got %d", len(specs), len(record))
		}
		for _, k := range Keys(specs) {
			if _, ok := record[k]; !ok {
				t.Errorf("Missing key %q", k)
			}
		}
	}
}

func TestExtract_MissingOrBlankValue(t *testing.T) {
	body := `<html><body>
		<div><span>Owner Name</span></div>
		<div><span>Fuel Type</span><p>   </p></div>
		<div><span>Model Name</span><p>SWIFT</p></div>
	</body></html>`
	specs := []FieldSpec{
		{Key: "Owner Name", Label: "Owner Name"},
		{Key: "Fuel Type", Label: "Fuel Type"},
		{Key: "Model Name", Label: "Model Name"},
	}

	record, _ := ExtractHTML(body, specs)
	if record["Owner Name"] != models.NotFound {
		t.Errorf("Expected sentinel for label without value, got %q", record["Owner Name"])
	}
	if record["Fuel Type"] != models.NotFound {
		t.Errorf("Expected sentinel for blank value, got %q", record["Fuel Type"])
	}
	if record["Model Name"] != "SWIFT" {
		t.Errorf("Expected SWIFT, got %q", record["Model Name"])
	}
}

func TestFieldSpec_Matches(t *testing.T) {
	exact := FieldSpec{Key: "Finance", Label: "Finance"}
	if !exact.Matches("  FINANCE ") {
		t.Error("Expected case-insensitive exact match")
	}
	if exact.Matches("Financier Name") {
		t.Error("Exact match must not accept containment")
	}

	contains := FieldSpec{Key: "Father's Name", Label: "father", Match: MatchContains}
	if !contains.Matches("Father’s Name") {
		t.Error("Expected containment match with curly quote")
	}
	if !contains.Matches("Father's/Husband's Name") {
		t.Error("Expected containment match")
	}
}

func TestExtract_FatherNameVariants(t *testing.T) {
	body := `<div><span>Father’s   Name</span><p>Ram Kumar</p></div>`
	record, _ := ExtractHTML(body, Defaults())
	if record["Father's Name"] != "Ram Kumar" {
		t.Errorf("Expected 'Ram Kumar', got %q", record["Father's Name"])
	}
}

func TestExtract_FirstLabelWins(t *testing.T) {
	body := `<div><span>Owner Name</span><p>First</p></div><div><span>Owner Name</span><p>Second</p></div>`
	record, _ := ExtractHTML(body, []FieldSpec{{Key: "Owner Name", Label: "Owner Name"}})
	if record["Owner Name"] != "First" {
		t.Errorf("Expected First, got %q", record["Owner Name"])
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Errorf("Default fields should validate: %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Error("Expected error for empty spec")
	}
	dup := []FieldSpec{{Key: "A", Label: "a"}, {Key: "A", Label: "b"}}
	if err := Validate(dup); err == nil {
		t.Error("Expected error for duplicate key")
	}
	bad := []FieldSpec{{Key: "A", Label: "a", Match: "regex"}}
	if err := Validate(bad); err == nil {
		t.Error("Expected error for unknown match mode")
	}
}
