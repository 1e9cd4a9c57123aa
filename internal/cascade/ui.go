package cascade

// UI is the form surface the cascade renders into. Stopping a render cycle is
// expressed by the controller returning early; a UI never needs to unwind.
type UI interface {
	Header(title, subtitle string)
	Select(name, label string, options []string, selected string)
	MultiSelect(name, label string, options []string, selected []string)
	Button(name, label string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	// Text shows preformatted text such as a raw response body.
	Text(text string)
	Subheader(text string)
	Divider()
	// Field shows a labeled value of a result.
	Field(label, value string)
}

// Form field names shared by the controller and the web layer.
const (
	FieldVehicleType = "tipo"
	FieldBrand       = "marca"
	FieldModels      = "modelos"
	FieldYearFuels   = "anos"
	FieldSubmit      = "consultar"
)
