package definition

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDataJSON(t *testing.T) {
	tests := []struct {
		name string
		d    *DataBuilder
		want string
	}{
		{"integer number", Number("n", 5).Integer().Range(0, 10),
			`{"id":"n","type":"number","default":5,"allowDecimals":false,"minValue":0,"maxValue":10}`},
		{"decimal number", Number("n", 0.5),
			`{"id":"n","type":"number","default":0.5}`},
		{"switch", Switch("s", true), `{"id":"s","type":"switch","default":true}`},
		{"choice", Choice("c", "a", "a", "b"), `{"id":"c","type":"choice","default":"a","valueChoices":["a","b"]}`},
		{"upper bound", UpperBound("hi", 100).Range(0, 100),
			`{"id":"hi","type":"upperBound","default":100,"minValue":0,"maxValue":100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.d.Build()
			if err != nil {
				t.Fatalf("Build err = %v", err)
			}
			got, err := json.Marshal(d)
			if err != nil {
				t.Fatalf("Marshal err = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDataUnmarshalDefaultsDecimals(t *testing.T) {
	var d Data
	if err := json.Unmarshal([]byte(`{"id":"n","type":"number","default":1}`), &d); err != nil {
		t.Fatalf("Unmarshal err = %v", err)
	}
	if n := d.Format.(NumberData); !n.AllowDecimals {
		t.Error("AllowDecimals = false, want true when absent")
	}
}

func TestDataUnmarshalUnknownType(t *testing.T) {
	var d Data
	err := json.Unmarshal([]byte(`{"id":"x","type":"slider"}`), &d)
	if err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("Unmarshal err = %v, want unknown type", err)
	}
}

func TestSameShapeIgnoresDefault(t *testing.T) {
	lo, hi := 0.0, 100.0
	a := NumberData{Default: 1, AllowDecimals: true, Min: &lo, Max: &hi}
	b := NumberData{Default: 50, AllowDecimals: true, Min: &lo, Max: &hi}
	if !a.SameShape(b) {
		t.Error("SameShape = false for formats differing only in default")
	}
	ten := 10.0
	b.Max = &ten
	if a.SameShape(b) {
		t.Error("SameShape = true for different ranges")
	}
	if a.SameShape(TextData{}) {
		t.Error("SameShape = true across kinds")
	}
}

func TestEmptyCollectionsSerializeAsArrays(t *testing.T) {
	out, err := json.Marshal(Description{ID: "p", Categories: []Category{{ID: "c", Name: "C"}}})
	if err != nil {
		t.Fatalf("Marshal err = %v", err)
	}
	for _, want := range []string{`"settings":[]`, `"actions":[]`, `"states":[]`, `"events":[]`, `"connectors":[]`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestEventTypeIsCommunicate(t *testing.T) {
	out, err := json.Marshal(Event{ID: "e", Name: "E", Format: "$val", ValueType: EventText})
	if err != nil {
		t.Fatalf("Marshal err = %v", err)
	}
	if !strings.Contains(string(out), `"type":"communicate"`) {
		t.Errorf("Marshal = %s, want type communicate", out)
	}
	if !strings.Contains(string(out), `"valueStateId":""`) {
		t.Errorf("Marshal = %s, want valueStateId present", out)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("{")); err == nil {
		t.Fatal("Parse err = nil, want error")
	}
}
