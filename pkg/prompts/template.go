package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
)

// TemplateFormat is the format of the template.
type TemplateFormat string

const (
	// TemplateFormatGoTemplate is the format for Go text templates.
	TemplateFormatGoTemplate TemplateFormat = "go-template"
	// TemplateFormatJinja2 is the format for jinja2 templates.
	TemplateFormatJinja2 TemplateFormat = "jinja2"
)

// ErrInvalidTemplateFormat is returned when the template format is not supported.
var ErrInvalidTemplateFormat = errors.New("invalid template format")

type interpolator func(template string, values map[string]any) (string, error)

var defaultFormatterMapping = map[TemplateFormat]interpolator{
	TemplateFormatGoTemplate: interpolatorGoTemplate,
	TemplateFormatJinja2:     interpolatorJinja2,
}

// interpolatorGoTemplate renders a Go text template with the sprig function
// set. A variable referenced by the template but absent from values is an
// error, not an empty string.
func interpolatorGoTemplate(tmpl string, values map[string]any) (string, error) {
	parsedTmpl, err := template.
		New("template").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(tmpl)
	if err != nil {
		return "", errors.WithStack(err)
	}
	sb := new(strings.Builder)
	err = parsedTmpl.Execute(sb, values)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return sb.String(), nil
}

func interpolatorJinja2(tmpl string, values map[string]any) (string, error) {
	tpl, err := gonja.FromString(tmpl)
	if err != nil {
		return "", errors.WithStack(err)
	}
	res, err := tpl.Execute(values)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return res, nil
}

// RenderTemplate renders the template with the given values.
func RenderTemplate(tmpl string, tmplFormat TemplateFormat, values map[string]any) (string, error) {
	formatter, ok := defaultFormatterMapping[tmplFormat]
	if !ok {
		return "", errors.WithMessagef(ErrInvalidTemplateFormat, "%s", tmplFormat)
	}
	return formatter(tmpl, values)
}

// CheckValidTemplate checks if the template is valid by rendering it with
// placeholder values for the declared input variables.
func CheckValidTemplate(template string, templateFormat TemplateFormat, inputVariables []string) error {
	_, ok := defaultFormatterMapping[templateFormat]
	if !ok {
		return errors.WithMessagef(ErrInvalidTemplateFormat, "%s", templateFormat)
	}

	dummyInputs := make(map[string]any, len(inputVariables))
	for _, v := range inputVariables {
		dummyInputs[v] = "test"
	}

	_, err := RenderTemplate(template, templateFormat, dummyInputs)
	return err
}
