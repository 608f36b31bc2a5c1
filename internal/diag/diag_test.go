package diag

import (
	"testing"

	"github.com/orizon-lang/regionck/internal/position"
)

func TestBuffer_AppendPreservesOrder(t *testing.T) {
	buf := NewBuffer()
	if buf.Len() != 0 || buf.HasErrors() {
		t.Fatal("a fresh buffer should be empty")
	}

	buf.Append(Diagnostic{Level: LevelWarning, Category: CategoryTypeTest, Message: "first"})
	buf.Append(Diagnostic{Level: LevelInfo, Category: CategoryRegionBound, Message: "second"})
	buf.Append(Diagnostic{Level: LevelError, Category: CategoryHigherRankedSubtype, Message: "third"})

	if buf.Len() != 3 {
		t.Fatalf("Len = %d, want 3", buf.Len())
	}
	all := buf.All()
	for i, want := range []string{"first", "second", "third"} {
		if all[i].Message != want {
			t.Errorf("diagnostic %d = %q, want %q", i, all[i].Message, want)
		}
	}
	if !buf.HasErrors() {
		t.Error("buffer holds an error diagnostic")
	}
}

func TestBuffer_HasErrorsIgnoresWarnings(t *testing.T) {
	buf := NewBuffer()
	buf.Append(Diagnostic{Level: LevelWarning, Message: "only a warning"})
	if buf.HasErrors() {
		t.Error("warnings alone should not count as errors")
	}
}

func TestDiagnostic_String(t *testing.T) {
	span := position.NewSpan("main.oriz", 4, 9, 15)
	d := Diagnostic{
		Level:    LevelError,
		Category: CategoryTypeTest,
		Message:  "the type `T` does not outlive 'a",
		Span:     span,
		Labels: []Label{
			{Message: "type must outlive 'a here", Span: span},
		},
	}
	got := d.String()
	want := "error[type-test]: the type `T` does not outlive 'a at main.oriz:4:9-15; type must outlive 'a here (main.oriz:4:9-15)"
	if got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestDiagnostic_StringWithoutSpan(t *testing.T) {
	d := Diagnostic{Level: LevelInfo, Category: CategoryRegionBound, Message: "note"}
	if got := d.String(); got != "info[region-bound]: note" {
		t.Errorf("String = %q", got)
	}
}

func TestLevelAndCategory_String(t *testing.T) {
	if LevelError.String() != "error" || LevelWarning.String() != "warning" || LevelInfo.String() != "info" {
		t.Error("level names changed")
	}
	if CategoryTypeTest.String() != "type-test" ||
		CategoryRegionBound.String() != "region-bound" ||
		CategoryHigherRankedSubtype.String() != "higher-ranked-subtype" {
		t.Error("category names changed")
	}
}
