package counter

import (
	"github.com/prysmsh/tpsdk/pkg/definition"
)

// Description returns the counter's plugin definition.
func Description() (*definition.Description, error) {
	step := func() *definition.DataBuilder {
		return definition.Number(DataStep, 1).Range(1, 100).Integer()
	}
	counter := definition.NewCategory("counter", "Counter").
		SubCategory("controls", "Controls").
		Action(definition.NewAction(ActionIncrement, "Increment").
			Translate("de", "Erhöhen").
			Communicate().
			Datum(step()).
			Line("Increment the counter by {$"+DataStep+"$}").
			HoldLine("Keep incrementing by {$"+DataStep+"$}").
			SubCategory("controls")).
		Action(definition.NewAction(ActionReset, "Reset").
			Communicate().
			Datum(definition.Choice(DataTarget, string(TargetZero), string(TargetZero), string(TargetStart))).
			Line("Reset the counter to {$"+DataTarget+"$}").
			SubCategory("controls")).
		State(definition.NewState(StateCount).
			Number().
			Description("Current count").
			Default("0")).
		State(definition.NewState(StateMode).
			Choice(string(ModeIdle), string(ModeCounting)).
			Description("Counter mode").
			Default(string(ModeIdle))).
		Event(definition.NewEvent(EventReached, "Count reached").
			Format("When the count $compare $val").
			Text(definition.CompareNumber).
			State(StateCount)).
		Event(definition.NewEvent(EventMode, "Mode changed").
			Format("When the counter becomes $val").
			Choices(string(ModeIdle), string(ModeCounting)).
			State(StateMode).
			LocalState(LocalPrevious, "Previous mode")).
		Connector(definition.NewConnector(ConnectorSpeed, "Speed").
			Format("Set counting speed in steps of {$"+DataStep+"$}").
			Supports(definition.ConnectorSlider, definition.ConnectorDial).
			Datum(step()))

	return definition.NewDescription(ID).
		Name("Counter").
		Version(1).
		StartCmd("%TP_PLUGIN_FOLDER%Counter/counter").
		StartCmdFor("windows", "%TP_PLUGIN_FOLDER%Counter\\counter.exe").
		Colors("#1F2937", "#6366F1").
		ParentCategory(definition.ParentTools).
		Category(counter).
		Setting(definition.NewSetting(SettingStart).Number().Default("0").Range(0, 1000)).
		Setting(definition.NewSetting(SettingAnnounce).Switch().Default("Off")).
		SettingsDescription("Counter demo shipped with tpsdk.").
		Build()
}
