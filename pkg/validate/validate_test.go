package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

func ptr[T any](v T) *T { return &v }

func line(format string) definition.Lines {
	return definition.Lines{Action: []definition.LingualLine{{
		Language: definition.DefaultLanguage,
		Data:     []definition.Line{{LineFormat: format}},
	}}}
}

func numberAction(id string, max float64) definition.Action {
	return definition.Action{
		ID:   id,
		Name: id,
		Type: definition.ActionCommunicate,
		Data: []definition.Data{{ID: "volume", Format: definition.NumberData{
			Default: 0, AllowDecimals: true, Min: ptr(0.0), Max: ptr(max),
		}}},
		Lines: line("Set volume to {$volume$}"),
	}
}

func validDescription() *definition.Description {
	return &definition.Description{
		API:      definition.APIV4_3,
		Version:  1,
		Name:     "Demo",
		ID:       "com.example.demo",
		StartCmd: "demo",
		Categories: []definition.Category{{
			ID:   "main",
			Name: "Main",
			Actions: []definition.Action{
				numberAction("set_volume", 100),
				{
					ID:    "mode",
					Name:  "Mode",
					Type:  definition.ActionCommunicate,
					Data:  []definition.Data{{ID: "level", Format: definition.ChoiceData{Default: "low", Choices: []string{"low", "high"}}}},
					Lines: line("Set mode {$level$}"),
				},
			},
			States: []definition.State{
				{ID: "status", Kind: definition.StateText, Description: "Status"},
				{ID: "power", Kind: definition.StateChoice, Description: "Power", Default: "off", Choices: []string{"on", "off"}},
			},
			Events: []definition.Event{{
				ID: "power_changed", Name: "Power changed", Format: "When power is $val",
				ValueType: definition.EventChoice, Choices: []string{"off", "on"}, ValueStateID: "power",
			}},
		}},
		Settings: []definition.Setting{
			{Name: "Interval", Kind: definition.SettingNumber, Default: "5", Min: ptr(1.0), Max: ptr(60.0)},
		},
	}
}

func mustViolate(t *testing.T, d *definition.Description, kind Kind, id string) *Error {
	t.Helper()
	_, err := Validate(d)
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Validate err = %v, want *Error", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("errors.Is(err, ErrInvalid) = false")
	}
	for _, v := range verr.Violations {
		if v.Kind == kind && v.ID == id {
			return verr
		}
	}
	t.Fatalf("no %s violation for %q in:\n%v", kind, id, err)
	return nil
}

func TestValidateAccepts(t *testing.T) {
	m, err := Validate(validDescription())
	if err != nil {
		t.Fatalf("Validate err = %v", err)
	}
	if _, ok := m.Field("volume"); !ok {
		t.Error(`Field("volume") not found`)
	}
	if got := m.FieldIDs(); !cmp.Equal(got, []string{"level", "volume"}) {
		t.Errorf("FieldIDs = %v", got)
	}
	if s, ok := m.State("power"); !ok || s.Kind != definition.StateChoice {
		t.Errorf(`State("power") = %+v, %v`, s, ok)
	}
}

func TestInconsistentFieldAcrossActions(t *testing.T) {
	d := validDescription()
	d.Categories[0].Actions = append(d.Categories[0].Actions, numberAction("set_volume_small", 10))
	verr := mustViolate(t, d, KindInconsistentField, "volume")
	if msg := verr.Violations[0].Message; !strings.Contains(msg, "set_volume_small") {
		t.Errorf("Message = %q, want both owners named", msg)
	}
}

func TestInconsistentFieldBetweenActionAndConnector(t *testing.T) {
	d := validDescription()
	d.Categories[0].Connectors = []definition.Connector{{
		ID: "vol", Name: "Volume", Format: "Volume {$volume$}",
		Data: []definition.Data{{ID: "volume", Format: definition.TextData{}}},
	}}
	mustViolate(t, d, KindInconsistentField, "volume")
}

func TestSharedFieldWithDifferentDefaultsIsAccepted(t *testing.T) {
	d := validDescription()
	other := numberAction("other_volume", 100)
	other.Data[0].Format = definition.NumberData{Default: 42, AllowDecimals: true, Min: ptr(0.0), Max: ptr(100.0)}
	d.Categories[0].Actions = append(d.Categories[0].Actions, other)
	if _, err := Validate(d); err != nil {
		t.Fatalf("Validate err = %v", err)
	}
}

func TestChoiceInitialNotAmongChoices(t *testing.T) {
	d := validDescription()
	d.Categories[0].Actions[1].Data[0].Format = definition.ChoiceData{Default: "medium", Choices: []string{"low", "high"}}
	mustViolate(t, d, KindInvalidInitialValue, "level")
}

func TestEventChoiceBoundToTextState(t *testing.T) {
	d := validDescription()
	d.Categories[0].Events[0].ValueStateID = "status"
	mustViolate(t, d, KindTypeMismatch, "power_changed")
}

func TestEventChoicesDifferFromState(t *testing.T) {
	d := validDescription()
	d.Categories[0].Events[0].Choices = []string{"on", "standby"}
	mustViolate(t, d, KindTypeMismatch, "power_changed")
}

func TestEventUnknownState(t *testing.T) {
	d := validDescription()
	d.Categories[0].Events[0].ValueStateID = "nope"
	mustViolate(t, d, KindUnknownReference, "power_changed")
}

func TestEmptyCategory(t *testing.T) {
	d := validDescription()
	d.Categories = append(d.Categories, definition.Category{ID: "empty", Name: "Empty"})
	mustViolate(t, d, KindEmptyEntity, "empty")
}

func TestDuplicateIDs(t *testing.T) {
	d := validDescription()
	d.Categories[0].States = append(d.Categories[0].States, definition.State{
		ID: "status", Kind: definition.StateText, Description: "Again",
	})
	d.Settings = append(d.Settings, d.Settings[0])
	mustViolate(t, d, KindDuplicateID, "status")
	mustViolate(t, d, KindDuplicateID, "Interval")
}

func TestMissingDefaultLanguage(t *testing.T) {
	d := validDescription()
	d.Categories[0].Actions[0].Lines.Action[0].Language = "nl"
	mustViolate(t, d, KindMissingDefaultLanguage, "set_volume")
}

func TestLineLayout(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *definition.Action)
	}{
		{"missing placeholder", func(a *definition.Action) {
			a.Lines.Action[0].Data[0].LineFormat = "Set volume"
		}},
		{"unknown placeholder", func(a *definition.Action) {
			a.Lines.Action[0].Data = append(a.Lines.Action[0].Data, definition.Line{LineFormat: "{$gain$}"})
		}},
		{"duplicate language", func(a *definition.Action) {
			a.Lines.Action = append(a.Lines.Action, a.Lines.Action[0])
		}},
		{"too many lines", func(a *definition.Action) {
			for range definition.MaxLinesPerLanguage {
				a.Lines.Action[0].Data = append(a.Lines.Action[0].Data, definition.Line{LineFormat: "more"})
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescription()
			tt.mutate(&d.Categories[0].Actions[0])
			mustViolate(t, d, KindLineLayout, "set_volume")
		})
	}
}

func TestUnknownSubCategory(t *testing.T) {
	d := validDescription()
	d.Categories[0].Actions[0].SubCategoryID = "audio"
	mustViolate(t, d, KindUnknownReference, "set_volume")

	d.Categories[0].SubCategories = []definition.SubCategory{{ID: "audio", Name: "Audio"}}
	if _, err := Validate(d); err != nil {
		t.Fatalf("Validate err = %v after declaring subcategory", err)
	}
}

func TestNumericInitial(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *definition.Description)
		kind   Kind
		id     string
	}{
		{"data above max", func(d *definition.Description) {
			d.Categories[0].Actions[0].Data[0].Format = definition.NumberData{Default: 101, AllowDecimals: true, Min: ptr(0.0), Max: ptr(100.0)}
		}, KindOutOfRange, "volume"},
		{"data not integer", func(d *definition.Description) {
			d.Categories[0].Actions[0].Data[0].Format = definition.NumberData{Default: 1.5, Min: ptr(0.0), Max: ptr(100.0)}
		}, KindInvalidInitialValue, "volume"},
		{"setting below min", func(d *definition.Description) {
			d.Settings[0].Default = "0"
		}, KindOutOfRange, "Interval"},
		{"setting not numeric", func(d *definition.Description) {
			d.Settings[0].Default = "soon"
		}, KindInvalidInitialValue, "Interval"},
		{"number state out of range", func(d *definition.Description) {
			d.Categories[0].States = append(d.Categories[0].States, definition.State{
				ID: "temp", Kind: definition.StateNumber, Description: "Temp", Default: "-5", Min: ptr(0.0), Max: ptr(10.0),
			})
		}, KindOutOfRange, "temp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescription()
			tt.mutate(d)
			mustViolate(t, d, tt.kind, tt.id)
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	d := validDescription()
	d.Categories = append(d.Categories, definition.Category{ID: "empty", Name: "Empty"})
	d.Categories[0].Events[0].ValueStateID = "status"
	d.Categories[0].Actions = append(d.Categories[0].Actions, numberAction("set_volume_small", 10))

	_, first := Validate(d)
	_, second := Validate(d)
	var a, b *Error
	if !errors.As(first, &a) || !errors.As(second, &b) {
		t.Fatalf("Validate errs = %v, %v", first, second)
	}
	if diff := cmp.Diff(a.Violations, b.Violations); diff != "" {
		t.Errorf("violations differ between runs (-first +second):\n%s", diff)
	}
	if len(a.Violations) < 3 {
		t.Errorf("len(Violations) = %d, want all three problems reported", len(a.Violations))
	}
}

func TestFailFast(t *testing.T) {
	d := validDescription()
	d.Categories = append(d.Categories, definition.Category{ID: "empty", Name: "Empty"})
	d.Categories[0].Events[0].ValueStateID = "status"

	_, err := Validate(d, FailFast())
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Validate err = %v", err)
	}
	if len(verr.Violations) != 1 {
		t.Fatalf("len(Violations) = %d, want 1", len(verr.Violations))
	}
	if verr.Violations[0].Rule != RuleNonEmpty {
		t.Errorf("Rule = %s, want %s", verr.Violations[0].Rule, RuleNonEmpty)
	}
}

func TestModelIsDetachedFromInput(t *testing.T) {
	d := validDescription()
	m, err := Validate(d)
	if err != nil {
		t.Fatalf("Validate err = %v", err)
	}
	d.Categories[0].Name = "Changed"
	if got := m.Description().Categories[0].Name; got != "Main" {
		t.Errorf("model category name = %q, want %q", got, "Main")
	}
}

func TestNilDescription(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Fatal("Validate(nil) err = nil")
	}
}
