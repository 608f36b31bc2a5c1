package position

import "testing"

func TestPosition_Validity(t *testing.T) {
	valid := Position{Filename: "a.oriz", Line: 1, Column: 1, Offset: 0}
	if !valid.IsValid() {
		t.Error("1:1 should be valid")
	}

	invalid := []Position{
		{Line: 0, Column: 1, Offset: 0},
		{Line: 1, Column: 0, Offset: 0},
		{Line: 1, Column: 1, Offset: -1},
	}
	for _, p := range invalid {
		if p.IsValid() {
			t.Errorf("%+v should be invalid", p)
		}
	}
}

func TestPosition_String(t *testing.T) {
	p := Position{Filename: "src/main.oriz", Line: 3, Column: 7, Offset: 42}
	if got := p.String(); got != "main.oriz:3:7" {
		t.Errorf("String = %q", got)
	}
	anon := Position{Line: 3, Column: 7}
	if got := anon.String(); got != "3:7" {
		t.Errorf("String = %q", got)
	}
}

func TestSpan_ValidityAndString(t *testing.T) {
	s := NewSpan("main.oriz", 5, 3, 9)
	if !s.IsValid() {
		t.Fatal("span should be valid")
	}
	if got := s.String(); got != "main.oriz:5:3-9" {
		t.Errorf("String = %q", got)
	}

	multi := Span{
		Start: Position{Filename: "main.oriz", Line: 5, Column: 3, Offset: 30},
		End:   Position{Filename: "main.oriz", Line: 7, Column: 2, Offset: 60},
	}
	if got := multi.String(); got != "main.oriz:5:3-7:2" {
		t.Errorf("String = %q", got)
	}

	crossFile := Span{
		Start: Position{Filename: "a.oriz", Line: 1, Column: 1, Offset: 0},
		End:   Position{Filename: "b.oriz", Line: 1, Column: 2, Offset: 1},
	}
	if crossFile.IsValid() {
		t.Error("a span across files should be invalid")
	}
}
