package tunex

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagKey = "tunex"

// spaceMeta holds parsed struct tag metadata, cached per TypedStudy.
type spaceMeta struct {
	typ    reflect.Type // struct type for reconstruction
	params []spaceParam
}

// spaceParam maps one struct field to one search space parameter.
type spaceParam struct {
	structIdx int
	name      string
	kind      ParamKind

	values    []any   // choice
	min, max  float64 // uniform / log_uniform
	low, high int64   // int
	step      int64
}

// parseSpace reflects on T and extracts tunex struct tag metadata.
func parseSpace[T any]() (*spaceMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tunex: type %s is not a struct", t)
	}

	meta := &spaceMeta{typ: t}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	return validateSpace(meta, t)
}

// applyTag processes a single struct field's tunex tag.
func applyTag(meta *spaceMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.SplitN(tag, ",", 2)
	name := parts[0]
	modifier := ""
	if len(parts) == 2 {
		modifier = parts[1]
	}
	if name == "" {
		return fmt.Errorf("tunex: empty parameter name on field %s", f.Name)
	}

	verb, args, _ := strings.Cut(modifier, "=")
	p := spaceParam{structIdx: idx, name: name, step: 1}

	switch verb {
	case "choice":
		values, err := parseChoiceValues(f, args)
		if err != nil {
			return fmt.Errorf("tunex: field %s: %w", f.Name, err)
		}
		p.kind = ParamChoice
		p.values = values
	case "uniform", "log_uniform":
		if !isFloatField(f) {
			return fmt.Errorf("tunex: %s parameter on field %s requires a float field", verb, f.Name)
		}
		lo, hi, err := parseFloatBounds(args)
		if err != nil {
			return fmt.Errorf("tunex: field %s: %w", f.Name, err)
		}
		p.kind = ParamUniform
		if verb == "log_uniform" {
			p.kind = ParamLogUniform
		}
		p.min, p.max = lo, hi
	case "int":
		if !isIntField(f) {
			return fmt.Errorf("tunex: int parameter on field %s requires an integer field", f.Name)
		}
		lo, hi, step, err := parseIntBounds(args)
		if err != nil {
			return fmt.Errorf("tunex: field %s: %w", f.Name, err)
		}
		p.kind = ParamInt
		p.low, p.high, p.step = lo, hi, step
	case "":
		// Поле без модификатора: bool превращается в choice true|false.
		if f.Type.Kind() != reflect.Bool {
			return fmt.Errorf("tunex: field %s needs a space modifier (choice, uniform, log_uniform, int)", f.Name)
		}
		p.kind = ParamChoice
		p.values = []any{true, false}
	default:
		return fmt.Errorf("tunex: unknown modifier %q on field %s", verb, f.Name)
	}

	meta.params = append(meta.params, p)
	return nil
}

func validateSpace(meta *spaceMeta, t reflect.Type) (*spaceMeta, error) {
	if len(meta.params) == 0 {
		return nil, fmt.Errorf("tunex: no fields with `tunex:\"...\"` tags in %s", t)
	}
	seen := make(map[string]struct{}, len(meta.params))
	for _, p := range meta.params {
		if _, dup := seen[p.name]; dup {
			return nil, fmt.Errorf("tunex: duplicate parameter name %q in %s", p.name, t)
		}
		seen[p.name] = struct{}{}
	}
	return meta, nil
}

// parseChoiceValues splits a|b|c and parses each value per the field's
// Go kind, so a float field gets float64 choices and so on.
func parseChoiceValues(f reflect.StructField, args string) ([]any, error) {
	if args == "" {
		return nil, fmt.Errorf("choice needs at least one value")
	}
	raw := strings.Split(args, "|")
	values := make([]any, 0, len(raw))
	for _, s := range raw {
		switch f.Type.Kind() {
		case reflect.String:
			values = append(values, s)
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("choice value %q: %w", s, err)
			}
			values = append(values, b)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("choice value %q: %w", s, err)
			}
			values = append(values, n)
		case reflect.Float32, reflect.Float64:
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("choice value %q: %w", s, err)
			}
			values = append(values, x)
		default:
			return nil, fmt.Errorf("unsupported choice field kind %s", f.Type.Kind())
		}
	}
	return values, nil
}

func parseFloatBounds(args string) (float64, float64, error) {
	parts := strings.Split(args, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bounds must be lo:hi, got %q", args)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bound %q: %w", parts[0], err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bound %q: %w", parts[1], err)
	}
	return lo, hi, nil
}

func parseIntBounds(args string) (int64, int64, int64, error) {
	parts := strings.Split(args, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("bounds must be lo:hi or lo:hi:step, got %q", args)
	}
	nums := make([]int64, len(parts))
	for i, s := range parts {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("bound %q: %w", s, err)
		}
		nums[i] = n
	}
	step := int64(1)
	if len(nums) == 3 {
		step = nums[2]
	}
	return nums[0], nums[1], step, nil
}

func isFloatField(f reflect.StructField) bool {
	k := f.Type.Kind()
	return k == reflect.Float32 || k == reflect.Float64
}

func isIntField(f reflect.StructField) bool {
	switch f.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

// studyOptions builds a StudyOption slice from the parsed space.
func (m *spaceMeta) studyOptions() []StudyOption {
	opts := make([]StudyOption, 0, len(m.params))
	for _, p := range m.params {
		switch p.kind {
		case ParamChoice:
			opts = append(opts, Choice(p.name, p.values...))
		case ParamUniform:
			opts = append(opts, Uniform(p.name, p.min, p.max))
		case ParamLogUniform:
			opts = append(opts, LogUniform(p.name, p.min, p.max))
		case ParamInt:
			opts = append(opts, IntRange(p.name, p.low, p.high, p.step))
		}
	}
	return opts
}

// fromParams converts trial parameters back to a typed struct using
// the parsed space metadata.
func (m *spaceMeta) fromParams(params Params) any {
	v := reflect.New(m.typ).Elem()

	for _, p := range m.params {
		if _, ok := params[p.name]; !ok {
			continue
		}
		field := v.Field(p.structIdx)
		switch field.Kind() {
		case reflect.String:
			field.SetString(params.String(p.name))
		case reflect.Bool:
			field.SetBool(params.Bool(p.name))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetInt(params.Int(p.name))
		case reflect.Float32, reflect.Float64:
			field.SetFloat(params.Float(p.name))
		}
	}
	return v.Interface()
}
