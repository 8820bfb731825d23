// ABOUTME: Form field implementations with HTML widget rendering
// ABOUTME: Text, numeric, decimal, boolean, datetime, select, and read-only fields

package form

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field is one input in a generated form. Implementations carry the
// submitted raw value, the parsed data, and any validation errors.
type Field interface {
	Name() string
	Label() string
	Required() bool
	ReadOnly() bool
	Errors() []string

	// Process captures the raw submitted value and parses it.
	Process(values url.Values)
	// Validate applies required/optional semantics and validators.
	// It returns true when the field holds acceptable data.
	Validate() bool
	// Data returns the parsed value. Empty optional input yields the
	// zero value.
	Data() any
	// SetData loads a value for display, the reverse of Data.
	SetData(v any)

	LabelHTML() template.HTML
	WidgetHTML() template.HTML
}

// Choice is one option of a select field.
type Choice struct {
	Value string
	Label string
}

// ChoiceField is implemented by fields whose options are loaded per
// request (relation selects).
type ChoiceField interface {
	Field
	SetChoices([]Choice)
}

type baseField struct {
	name       string
	label      string
	required   bool
	validators []Validator
	errors     []string
	raw        string
	parseErr   string
}

func (b *baseField) Name() string     { return b.name }
func (b *baseField) Label() string    { return b.label }
func (b *baseField) Required() bool   { return b.required }
func (b *baseField) ReadOnly() bool   { return false }
func (b *baseField) Errors() []string { return b.errors }

func (b *baseField) LabelHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<label for=%q>%s</label>`, b.name, template.HTMLEscapeString(b.label)))
}

// validate runs the shared required/optional logic, then the injected
// validators. Fields with parse errors report those instead.
func (b *baseField) validate() bool {
	b.errors = nil
	if strings.TrimSpace(b.raw) == "" {
		if b.required {
			b.errors = append(b.errors, "This field is required.")
			return false
		}
		// Optional: empty input short-circuits the validators.
		return true
	}
	if b.parseErr != "" {
		b.errors = append(b.errors, b.parseErr)
		return false
	}
	for _, v := range b.validators {
		if msg := v(b.raw); msg != "" {
			b.errors = append(b.errors, msg)
		}
	}
	return len(b.errors) == 0
}

func (b *baseField) capture(values url.Values) {
	b.raw = values.Get(b.name)
	b.parseErr = ""
}

func attrEscape(s string) string {
	return template.HTMLEscapeString(s)
}

// TextField is a single-line string input.
type TextField struct {
	baseField
	value string
}

// NewTextField builds a text input.
func NewTextField(name, label string, required bool, validators ...Validator) *TextField {
	return &TextField{baseField: baseField{name: name, label: label, required: required, validators: validators}}
}

func (f *TextField) Process(values url.Values) {
	f.capture(values)
	f.value = f.raw
}

func (f *TextField) Validate() bool { return f.validate() }
func (f *TextField) Data() any      { return f.value }
func (f *TextField) SetData(v any) {
	f.value = fmt.Sprintf("%v", v)
	f.raw = f.value
}

func (f *TextField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="text" id=%q name=%q value=%q>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.value)))
}

// TextAreaField is a multi-line string input.
type TextAreaField struct {
	TextField
}

// NewTextAreaField builds a textarea.
func NewTextAreaField(name, label string, required bool, validators ...Validator) *TextAreaField {
	return &TextAreaField{TextField: *NewTextField(name, label, required, validators...)}
}

func (f *TextAreaField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<textarea id=%q name=%q rows="6">%s</textarea>`,
		attrEscape(f.name), attrEscape(f.name), template.HTMLEscapeString(f.value)))
}

// IntegerField parses a signed integer.
type IntegerField struct {
	baseField
	value int64
}

// NewIntegerField builds an integer input.
func NewIntegerField(name, label string, required bool, validators ...Validator) *IntegerField {
	return &IntegerField{baseField: baseField{name: name, label: label, required: required, validators: validators}}
}

func (f *IntegerField) Process(values url.Values) {
	f.capture(values)
	f.value = 0
	if strings.TrimSpace(f.raw) == "" {
		return
	}
	n, err := strconv.ParseInt(strings.TrimSpace(f.raw), 10, 64)
	if err != nil {
		f.parseErr = "Not a valid integer value."
		return
	}
	f.value = n
}

func (f *IntegerField) Validate() bool { return f.validate() }
func (f *IntegerField) Data() any      { return f.value }
func (f *IntegerField) SetData(v any) {
	f.value = toInt64(v)
	f.raw = strconv.FormatInt(f.value, 10)
}

func (f *IntegerField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="number" step="1" id=%q name=%q value=%q>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.raw)))
}

// FloatField parses a floating point number.
type FloatField struct {
	baseField
	value float64
}

// NewFloatField builds a float input.
func NewFloatField(name, label string, required bool, validators ...Validator) *FloatField {
	return &FloatField{baseField: baseField{name: name, label: label, required: required, validators: validators}}
}

func (f *FloatField) Process(values url.Values) {
	f.capture(values)
	f.value = 0
	if strings.TrimSpace(f.raw) == "" {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
	if err != nil {
		f.parseErr = "Not a valid float value."
		return
	}
	f.value = v
}

func (f *FloatField) Validate() bool { return f.validate() }
func (f *FloatField) Data() any      { return f.value }
func (f *FloatField) SetData(v any) {
	f.value = toFloat64(v)
	f.raw = trimFloat(f.value)
}

func (f *FloatField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="number" step="any" id=%q name=%q value=%q>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.raw)))
}

// DecimalField parses an exact decimal value.
type DecimalField struct {
	baseField
	value decimal.Decimal
}

// NewDecimalField builds a decimal input.
func NewDecimalField(name, label string, required bool, validators ...Validator) *DecimalField {
	return &DecimalField{baseField: baseField{name: name, label: label, required: required, validators: validators}}
}

func (f *DecimalField) Process(values url.Values) {
	f.capture(values)
	f.value = decimal.Decimal{}
	if strings.TrimSpace(f.raw) == "" {
		return
	}
	d, err := decimal.NewFromString(strings.TrimSpace(f.raw))
	if err != nil {
		f.parseErr = "Not a valid decimal value."
		return
	}
	f.value = d
}

func (f *DecimalField) Validate() bool { return f.validate() }
func (f *DecimalField) Data() any      { return f.value }
func (f *DecimalField) SetData(v any) {
	if d, ok := v.(decimal.Decimal); ok {
		f.value = d
		f.raw = d.String()
	}
}

func (f *DecimalField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="text" id=%q name=%q value=%q>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.raw)))
}

// BooleanField is a checkbox. Browsers omit unchecked boxes from the
// submission, so absence parses as false and validation always passes.
type BooleanField struct {
	baseField
	value bool
}

// NewBooleanField builds a checkbox.
func NewBooleanField(name, label string) *BooleanField {
	return &BooleanField{baseField: baseField{name: name, label: label}}
}

func (f *BooleanField) Process(values url.Values) {
	f.capture(values)
	f.value = f.raw != ""
}

func (f *BooleanField) Validate() bool {
	f.errors = nil
	return true
}

func (f *BooleanField) Data() any { return f.value }
func (f *BooleanField) SetData(v any) {
	b, _ := v.(bool)
	f.value = b
	if b {
		f.raw = "on"
	} else {
		f.raw = ""
	}
}

func (f *BooleanField) WidgetHTML() template.HTML {
	checked := ""
	if f.value {
		checked = " checked"
	}
	return template.HTML(fmt.Sprintf(`<input type="checkbox" id=%q name=%q%s>`,
		attrEscape(f.name), attrEscape(f.name), checked))
}

// Accepted datetime input layouts, tried in order.
var datetimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// DateTimeField parses a timestamp from a datetime-local input.
type DateTimeField struct {
	baseField
	value time.Time
}

// NewDateTimeField builds a datetime input.
func NewDateTimeField(name, label string, required bool, validators ...Validator) *DateTimeField {
	return &DateTimeField{baseField: baseField{name: name, label: label, required: required, validators: validators}}
}

func (f *DateTimeField) Process(values url.Values) {
	f.capture(values)
	f.value = time.Time{}
	raw := strings.TrimSpace(f.raw)
	if raw == "" {
		return
	}
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			f.value = ts.UTC()
			return
		}
	}
	f.parseErr = "Not a valid datetime value."
}

func (f *DateTimeField) Validate() bool { return f.validate() }
func (f *DateTimeField) Data() any      { return f.value }
func (f *DateTimeField) SetData(v any) {
	ts, ok := v.(time.Time)
	if !ok {
		return
	}
	f.value = ts
	if ts.IsZero() {
		f.raw = ""
	} else {
		f.raw = ts.UTC().Format("2006-01-02T15:04")
	}
}

func (f *DateTimeField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="datetime-local" id=%q name=%q value=%q>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.raw)))
}

// SelectField is a single-valued choice list, used for reference
// fields whose options come from the datastore.
type SelectField struct {
	baseField
	choices []Choice
	value   string
}

// NewSelectField builds a select input.
func NewSelectField(name, label string, required bool) *SelectField {
	return &SelectField{baseField: baseField{name: name, label: label, required: required}}
}

func (f *SelectField) SetChoices(choices []Choice) { f.choices = choices }

func (f *SelectField) Process(values url.Values) {
	f.capture(values)
	f.value = f.raw
}

func (f *SelectField) Validate() bool {
	if !f.validate() {
		return false
	}
	if f.value == "" {
		return true
	}
	for _, c := range f.choices {
		if c.Value == f.value {
			return true
		}
	}
	f.errors = append(f.errors, "Not a valid choice.")
	return false
}

func (f *SelectField) Data() any { return f.value }
func (f *SelectField) SetData(v any) {
	f.value = fmt.Sprintf("%v", v)
	f.raw = f.value
}

func (f *SelectField) WidgetHTML() template.HTML {
	var b strings.Builder
	fmt.Fprintf(&b, `<select id=%q name=%q>`, attrEscape(f.name), attrEscape(f.name))
	b.WriteString(`<option value=""></option>`)
	for _, c := range f.choices {
		selected := ""
		if c.Value == f.value {
			selected = " selected"
		}
		fmt.Fprintf(&b, `<option value=%q%s>%s</option>`, attrEscape(c.Value), selected, template.HTMLEscapeString(c.Label))
	}
	b.WriteString(`</select>`)
	return template.HTML(b.String())
}

// MultiSelectField is a multi-valued choice list backing many-to-many
// relations.
type MultiSelectField struct {
	baseField
	choices []Choice
	values  []string
}

// NewMultiSelectField builds a multiple select input.
func NewMultiSelectField(name, label string) *MultiSelectField {
	return &MultiSelectField{baseField: baseField{name: name, label: label}}
}

func (f *MultiSelectField) SetChoices(choices []Choice) { f.choices = choices }

func (f *MultiSelectField) Process(values url.Values) {
	f.values = nil
	f.parseErr = ""
	for _, v := range values[f.name] {
		if v != "" {
			f.values = append(f.values, v)
		}
	}
	f.raw = strings.Join(f.values, ",")
}

func (f *MultiSelectField) Validate() bool {
	f.errors = nil
	valid := make(map[string]bool, len(f.choices))
	for _, c := range f.choices {
		valid[c.Value] = true
	}
	for _, v := range f.values {
		if !valid[v] {
			f.errors = append(f.errors, "Not a valid choice.")
			return false
		}
	}
	return true
}

func (f *MultiSelectField) Data() any { return f.values }
func (f *MultiSelectField) SetData(v any) {
	f.values = nil
	if vs, ok := v.([]string); ok {
		f.values = append(f.values, vs...)
	}
	f.raw = strings.Join(f.values, ",")
}

func (f *MultiSelectField) WidgetHTML() template.HTML {
	selected := make(map[string]bool, len(f.values))
	for _, v := range f.values {
		selected[v] = true
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<select multiple size="8" id=%q name=%q>`, attrEscape(f.name), attrEscape(f.name))
	for _, c := range f.choices {
		sel := ""
		if selected[c.Value] {
			sel = " selected"
		}
		fmt.Fprintf(&b, `<option value=%q%s>%s</option>`, attrEscape(c.Value), sel, template.HTMLEscapeString(c.Label))
	}
	b.WriteString(`</select>`)
	return template.HTML(b.String())
}

// ReadOnlyField renders a value in a disabled input. Primary keys use
// it; submitted values are captured but never applied back.
type ReadOnlyField struct {
	baseField
	value string
}

// NewReadOnlyField builds a disabled text input.
func NewReadOnlyField(name, label string) *ReadOnlyField {
	return &ReadOnlyField{baseField: baseField{name: name, label: label}}
}

func (f *ReadOnlyField) ReadOnly() bool { return true }

func (f *ReadOnlyField) Process(values url.Values) {
	// Submitted values for disabled inputs are ignored entirely.
}

func (f *ReadOnlyField) Validate() bool {
	f.errors = nil
	return true
}

func (f *ReadOnlyField) Data() any { return f.value }
func (f *ReadOnlyField) SetData(v any) {
	f.value = fmt.Sprintf("%v", v)
}

func (f *ReadOnlyField) WidgetHTML() template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="text" id=%q name=%q value=%q disabled>`,
		attrEscape(f.name), attrEscape(f.name), attrEscape(f.value)))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return float64(toInt64(v))
	}
}
