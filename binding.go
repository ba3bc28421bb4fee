package imgcli

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/dyollb/imgcli/raster"
	"github.com/dyollb/imgcli/transform"
)

var (
	errNotFunction      = errors.New("not a function")
	errBadSignature     = errors.New("unsupported function signature")
	errUnsupportedField = errors.New("unsupported parameter field type")
	errDuplicateCommand = errors.New("command already registered")
)

var (
	imageType     = reflect.TypeOf((*raster.Image)(nil))
	transformType = reflect.TypeOf((*transform.Transform)(nil))
	ctxType       = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// paramKind is the semantic kind of a command parameter.
type paramKind int

const (
	kindScalar paramKind = iota
	kindFlag
	kindImage
	kindTransform
)

func (k paramKind) String() string {
	switch k {
	case kindFlag:
		return "flag"
	case kindImage:
		return "image"
	case kindTransform:
		return "transform"
	default:
		return "scalar"
	}
}

// returnKind is the semantic kind of a command result.
type returnKind int

const (
	retNone returnKind = iota
	retImage
	retTransform
	retScalar
)

// paramSpec describes one CLI parameter derived from a params struct field.
type paramSpec struct {
	Name       string
	Short      string
	Usage      string
	Kind       paramKind
	Field      int
	Type       reflect.Type
	Positional bool
	Required   bool
	Optional   bool
	Default    string
	HasDefault bool
	Glob       string
}

// outputSpec describes the synthesized output-path parameter.
type outputSpec struct {
	Name       string
	Positional bool
	Kind       returnKind
}

// funcSpec is the command descriptor: everything derived from a registered
// function that the generated CLI needs at build and invocation time.
type funcSpec struct {
	fn         reflect.Value
	paramsType reflect.Type
	wantsCtx   bool
	params     []*paramSpec
	positional []*paramSpec
	output     *outputSpec
	returns    returnKind
}

// objects returns the image/transform parameters in declaration order.
func (s *funcSpec) objects() []*paramSpec {
	var out []*paramSpec
	for _, p := range s.params {
		if p.Kind == kindImage || p.Kind == kindTransform {
			out = append(out, p)
		}
	}
	return out
}

// parseFunc builds the command descriptor for fn. Accepted shapes are
// func([ctx,] *Params) ([Result,] error) where Params is a struct and
// Result is *raster.Image, *transform.Transform or a printable scalar.
func parseFunc(fn any, outputArgName string) (*funcSpec, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T: %w", fn, errNotFunction)
	}
	t := v.Type()

	spec := &funcSpec{fn: v}

	// Inputs: optional context.Context, then optional *Params struct.
	in := t.NumIn()
	next := 0
	if in > 0 && t.In(0) == ctxType {
		spec.wantsCtx = true
		next = 1
	}
	switch in - next {
	case 0:
		// generator without parameters
	case 1:
		pt := t.In(next)
		if pt.Kind() != reflect.Ptr || pt.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("params argument must be a pointer to struct, got %s: %w", pt, errBadSignature)
		}
		spec.paramsType = pt.Elem()
	default:
		return nil, fmt.Errorf("too many arguments: %w", errBadSignature)
	}

	// Outputs: ([Result,] error)
	switch t.NumOut() {
	case 1:
		if t.Out(0) != errorType {
			return nil, fmt.Errorf("single return value must be error, got %s: %w", t.Out(0), errBadSignature)
		}
		spec.returns = retNone
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("second return value must be error, got %s: %w", t.Out(1), errBadSignature)
		}
		switch t.Out(0) {
		case imageType:
			spec.returns = retImage
		case transformType:
			spec.returns = retTransform
		default:
			spec.returns = retScalar
		}
	default:
		return nil, fmt.Errorf("function must return ([result,] error): %w", errBadSignature)
	}

	if spec.paramsType != nil {
		if err := parseParams(spec); err != nil {
			return nil, err
		}
	}

	// Synthesize the output parameter when the result is written to file.
	if spec.returns == retImage || spec.returns == retTransform {
		hasPositionalInput := false
		hasObjectInput := false
		for _, p := range spec.params {
			if p.Kind == kindImage || p.Kind == kindTransform {
				hasObjectInput = true
				if p.Positional {
					hasPositionalInput = true
				}
			}
		}
		// Output is positional when at least one object input is positional,
		// or when there are no object inputs at all (generator functions).
		// It becomes a named option only when all object inputs are named.
		spec.output = &outputSpec{
			Name:       outputArgName,
			Positional: hasPositionalInput || !hasObjectInput,
			Kind:       spec.returns,
		}
	}

	return spec, nil
}

// parseParams walks the params struct fields and builds one paramSpec per
// exported field.
func parseParams(spec *funcSpec) error {
	pt := spec.paramsType
	seen := make(map[string]bool)

	for i := 0; i < pt.NumField(); i++ {
		field := pt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("cli")
		if tag == "-" {
			continue
		}

		p, err := parseFieldTag(field, tag)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", pt.Name(), field.Name, err)
		}
		p.Field = i

		if seen[p.Name] {
			return fmt.Errorf("field %s.%s: duplicate parameter name %q", pt.Name(), field.Name, p.Name)
		}
		seen[p.Name] = true

		spec.params = append(spec.params, p)
		if p.Positional {
			spec.positional = append(spec.positional, p)
		}
	}
	return nil
}

// parseFieldTag interprets a single struct field plus its cli tag.
//
// Tag syntax follows the corpus convention of comma-separated options with
// the parameter name first and usage consuming the remainder:
//
//	Radius int           `cli:"radius,default:2,usage:Median radius"`
//	Mask   *raster.Image `cli:"mask,named"`
func parseFieldTag(field reflect.StructField, tag string) (*paramSpec, error) {
	p := &paramSpec{
		Name: toKebab(field.Name),
		Type: field.Type,
	}

	switch field.Type {
	case imageType:
		p.Kind = kindImage
	case transformType:
		p.Kind = kindTransform
	default:
		switch field.Type.Kind() {
		case reflect.Bool:
			p.Kind = kindFlag
		case reflect.String, reflect.Int, reflect.Int64, reflect.Float64:
			p.Kind = kindScalar
		default:
			return nil, fmt.Errorf("%s: %w", field.Type, errUnsupportedField)
		}
	}

	named := false
	for i, opt := range splitTag(tag) {
		switch {
		case opt == "":
			// empty leading element keeps the derived name
		case strings.HasPrefix(opt, "usage:"):
			p.Usage = strings.TrimPrefix(opt, "usage:")
		case strings.HasPrefix(opt, "default:"):
			p.Default = strings.TrimPrefix(opt, "default:")
			p.HasDefault = true
		case strings.HasPrefix(opt, "short:"):
			p.Short = strings.TrimPrefix(opt, "short:")
		case strings.HasPrefix(opt, "glob:"):
			p.Glob = strings.TrimPrefix(opt, "glob:")
		case opt == "named":
			named = true
		case opt == "optional":
			p.Optional = true
		case opt == "required":
			p.Required = true
		default:
			if i == 0 {
				p.Name = opt
			} else {
				return nil, fmt.Errorf("unknown cli tag option %q", opt)
			}
		}
	}

	switch p.Kind {
	case kindImage, kindTransform:
		if p.HasDefault {
			return nil, fmt.Errorf("%s parameters cannot carry a default", p.Kind)
		}
		// Required object inputs are positional arguments; "named" is the
		// keyword-only analog, and optional inputs are always named.
		p.Positional = !named && !p.Optional
		p.Required = !p.Optional
	case kindFlag:
		p.Required = false
		if !p.HasDefault {
			p.Default = "false"
		}
	case kindScalar:
		// Scalars without a declared default are required named options.
		if !p.HasDefault && !p.Optional {
			p.Required = true
		}
		if p.HasDefault {
			if err := checkDefault(p); err != nil {
				return nil, err
			}
		}
	}
	if p.Required && p.Optional {
		return nil, fmt.Errorf("parameter %q cannot be both required and optional", p.Name)
	}

	return p, nil
}

// checkDefault validates the declared default against the field type at
// registration time, so misuse fails before any CLI is built.
func checkDefault(p *paramSpec) error {
	var err error
	switch p.Type.Kind() {
	case reflect.Int, reflect.Int64:
		_, err = strconv.ParseInt(p.Default, 10, 64)
	case reflect.Float64:
		_, err = strconv.ParseFloat(p.Default, 64)
	case reflect.Bool:
		_, err = strconv.ParseBool(p.Default)
	}
	if err != nil {
		return fmt.Errorf("invalid default %q for %s parameter %q: %w", p.Default, p.Type, p.Name, err)
	}
	return nil
}

// splitTag splits a cli tag on commas, with a usage: option consuming the
// remainder of the tag so usage text may contain commas.
func splitTag(tag string) []string {
	if tag == "" {
		return nil
	}
	var parts []string
	rest := tag
	for rest != "" {
		if strings.HasPrefix(rest, "usage:") {
			parts = append(parts, rest)
			break
		}
		head, tail, found := strings.Cut(rest, ",")
		parts = append(parts, strings.TrimSpace(head))
		if !found {
			break
		}
		rest = tail
	}
	return parts
}

// toKebab converts a Go field name to its kebab-case CLI name.
func toKebab(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
