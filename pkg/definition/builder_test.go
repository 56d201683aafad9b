package definition

import (
	"errors"
	"strings"
	"testing"
)

func TestDataBuilder(t *testing.T) {
	d, err := Number("volume", 50).Range(0, 100).Integer().Build()
	if err != nil {
		t.Fatalf("Build err = %v", err)
	}
	n, ok := d.Format.(NumberData)
	if !ok {
		t.Fatalf("Format = %T, want NumberData", d.Format)
	}
	if n.AllowDecimals {
		t.Error("AllowDecimals = true, want false")
	}
	if *n.Min != 0 || *n.Max != 100 {
		t.Errorf("range = [%v, %v], want [0, 100]", *n.Min, *n.Max)
	}
}

func TestDataBuilderRejects(t *testing.T) {
	tests := []struct {
		name  string
		b     *DataBuilder
		field string
	}{
		{"inverted range", Number("n", 0).Range(10, 1), "minValue"},
		{"range on text", Text("t", "").Range(0, 1), "minValue"},
		{"fractional bound", LowerBound("lo", 0).Range(0.5, 3), "minValue"},
		{"integer on switch", Switch("s", true).Integer(), "allowDecimals"},
		{"bad colour", Color("c", "red"), "default"},
		{"no choices", Choice("c", "x"), "valueChoices"},
		{"bad extension", File("f", "", "png"), "extensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Build err = %v, want *FieldError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestDataBuilderMissingID(t *testing.T) {
	_, err := Text("", "x").Build()
	var me *MissingFieldError
	if !errors.As(err, &me) || me.Field != "id" {
		t.Fatalf("Build err = %v, want missing id", err)
	}
}

func TestActionBuilder(t *testing.T) {
	a, err := NewAction("mute", "Mute").
		Communicate().
		Datum(Switch("state", true)).
		Line("Mute is " + Placeholder("state")).
		HoldLine("Hold mute " + Placeholder("state")).
		Build()
	if err != nil {
		t.Fatalf("Build err = %v", err)
	}
	if !a.HasHoldFunctionality {
		t.Error("HasHoldFunctionality = false, want true")
	}
	if got := a.Lines.Action[0].Language; got != DefaultLanguage {
		t.Errorf("Language = %q, want %q", got, DefaultLanguage)
	}
}

func TestActionBuilderNinthLine(t *testing.T) {
	b := NewAction("a", "A").Communicate()
	for i := 0; i < MaxLinesPerLanguage+1; i++ {
		b.Line("line")
	}
	_, err := b.Build()
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "lines.action" {
		t.Fatalf("Build err = %v, want lines.action field error", err)
	}
}

func TestActionBuilderMissing(t *testing.T) {
	tests := []struct {
		name  string
		b     *ActionBuilder
		field string
	}{
		{"no type", NewAction("a", "A").Line("x"), "type"},
		{"no lines", NewAction("a", "A").Communicate(), "lines"},
		{"execute without cmd", NewAction("a", "A").Execute("").Line("x"), "execution_cmd"},
		{"no name", NewAction("a", ""), "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			var me *MissingFieldError
			if !errors.As(err, &me) {
				t.Fatalf("Build err = %v, want *MissingFieldError", err)
			}
			if me.Field != tt.field {
				t.Errorf("Field = %q, want %q", me.Field, tt.field)
			}
		})
	}
}

func TestActionBuilderChildErrorsJoined(t *testing.T) {
	_, err := NewAction("a", "A").
		Communicate().
		Datum(Number("n", 0).Range(5, 1)).
		Datum(Color("c", "#12")).
		Translate("xx", "?").
		Line("x").
		Build()
	if err == nil {
		t.Fatal("Build err = nil, want joined field errors")
	}
	for _, want := range []string{`data "n"`, `data "c"`, `name_xx`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestEventCompareWithoutVal(t *testing.T) {
	_, err := NewEvent("e", "E").Format("When $compare").Choices("a").Build()
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "format" {
		t.Fatalf("Build err = %v, want format field error", err)
	}
}

func TestSettingBuilder(t *testing.T) {
	tests := []struct {
		name    string
		b       *SettingBuilder
		wantErr bool
	}{
		{"switch on", NewSetting("Enabled").Switch().Default("On"), false},
		{"switch true", NewSetting("Enabled").Switch().Default("true"), true},
		{"number ok", NewSetting("Port").Number().Default("8080").Range(1, 65535), false},
		{"number not numeric", NewSetting("Port").Number().Default("http"), true},
		{"too long", NewSetting("Name").Text().Default("abcdef").MaxLength(3), true},
		{"maxLength on switch", NewSetting("S").Switch().Default("Off").MaxLength(3), true},
		{"range on text", NewSetting("T").Text().Default("").Range(0, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingBuilderMissingDefault(t *testing.T) {
	_, err := NewSetting("Token").Text().Password().Build()
	var me *MissingFieldError
	if !errors.As(err, &me) || me.Field != "default" {
		t.Fatalf("Build err = %v, want missing default", err)
	}
}

func TestDescriptionBuilder(t *testing.T) {
	d, err := NewDescription("com.example.demo").
		Name("Demo").
		Version(3).
		StartCmd("demo").
		StartCmdFor("darwin", "./demo").
		Colors("#222222", "#EEEEEE").
		ParentCategory(ParentMisc).
		Category(NewCategory("main", "Main").
			State(NewState("status").Description("Status").Text())).
		Setting(NewSetting("Enabled").Switch().Default("On")).
		Build()
	if err != nil {
		t.Fatalf("Build err = %v", err)
	}
	if d.API != APIV4_3 {
		t.Errorf("API = %d, want %d", d.API, APIV4_3)
	}
	if d.StartCmdMac != "./demo" {
		t.Errorf("StartCmdMac = %q, want %q", d.StartCmdMac, "./demo")
	}
	if got := len(d.States()); got != 1 {
		t.Errorf("len(States()) = %d, want 1", got)
	}
}

func TestDescriptionBuilderMissingVersion(t *testing.T) {
	_, err := NewDescription("p").Name("P").StartCmd("p").Build()
	var me *MissingFieldError
	if !errors.As(err, &me) || me.Field != "version" {
		t.Fatalf("Build err = %v, want missing version", err)
	}
}

func TestDescriptionBuilderPropagatesChildErrors(t *testing.T) {
	_, err := NewDescription("p").Name("P").Version(1).StartCmd("p").
		Category(NewCategory("c", "C").State(NewState("s").Text())).
		Build()
	var me *MissingFieldError
	if !errors.As(err, &me) || me.Entity != "state" || me.Field != "desc" {
		t.Fatalf("Build err = %v, want missing state desc", err)
	}
}
