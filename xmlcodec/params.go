package xmlcodec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const redactedValue = "***"

type paramKind int

const (
	kindScalar paramKind = iota
	kindSecret
	kindRaw
)

type param struct {
	key   string
	value string
	kind  paramKind
}

// Params is an ordered block of SOAP method parameters.
// Keys render in insertion order.
type Params struct {
	items []param
}

// NewParams creates an empty parameter block.
func NewParams() *Params {
	return &Params{}
}

// Add appends a scalar parameter. The value is escaped when rendered.
func (p *Params) Add(key, value string) *Params {
	p.items = append(p.items, param{key: key, value: value, kind: kindScalar})
	return p
}

// AddSecret appends a scalar parameter that is masked by Redacted.
func (p *Params) AddSecret(key, value string) *Params {
	p.items = append(p.items, param{key: key, value: value, kind: kindSecret})
	return p
}

// AddRaw appends a pre-built XML fragment. It is inlined verbatim between
// <key> and </key>; callers are responsible for escaping its contents.
func (p *Params) AddRaw(key, fragment string) *Params {
	p.items = append(p.items, param{key: key, value: fragment, kind: kindRaw})
	return p
}

// keys returns the parameter names in insertion order.
func (p *Params) keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.items))
	for _, it := range p.items {
		keys = append(keys, it.key)
	}
	return keys
}

// String renders the parameter block as XML.
func (p *Params) String() string {
	return p.render(false)
}

// Redacted renders the parameter block with secret values masked.
func (p *Params) Redacted() string {
	return p.render(true)
}

func (p *Params) render(redact bool) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for _, it := range p.items {
		b.WriteString("<")
		b.WriteString(it.key)
		b.WriteString(">")
		switch {
		case it.kind == kindRaw:
			b.WriteString(it.value)
		case it.kind == kindSecret && redact:
			b.WriteString(redactedValue)
		default:
			b.WriteString(Escape(it.value))
		}
		b.WriteString("</")
		b.WriteString(it.key)
		b.WriteString(">")
	}
	return b.String()
}

// Encode serializes a request struct into Params.
//
// Exported fields tagged `soap:"NAME"` become parameters in field order.
// Supported options:
//
//	soap:"sp,secret"           scalar masked in Redacted output
//	soap:"GOODS_LIST>GOOD"     slice of structs rendered as a nested list
//	soap:"-"                   skipped
//
// Scalars may be strings, bools, or any integer or float kind.
func Encode(v any) (*Params, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("xmlcodec: encode nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("xmlcodec: encode %s: not a struct", rv.Type())
	}

	p := NewParams()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("soap")
		if !ok || tag == "-" {
			continue
		}
		name, opt, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if list, item, nested := strings.Cut(name, ">"); nested {
			raw, err := encodeList(fv, item)
			if err != nil {
				return nil, fmt.Errorf("xmlcodec: field %s: %w", field.Name, err)
			}
			p.AddRaw(list, raw)
			continue
		}

		value, err := formatScalar(fv)
		if err != nil {
			return nil, fmt.Errorf("xmlcodec: field %s: %w", field.Name, err)
		}
		if opt == "secret" {
			p.AddSecret(name, value)
		} else {
			p.Add(name, value)
		}
	}
	return p, nil
}

func encodeList(fv reflect.Value, item string) (string, error) {
	if fv.Kind() != reflect.Slice {
		return "", fmt.Errorf("list tag on %s", fv.Type())
	}
	var b strings.Builder
	for i := 0; i < fv.Len(); i++ {
		inner, err := Encode(fv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		b.WriteString("<" + item + ">")
		b.WriteString(inner.String())
		b.WriteString("</" + item + ">")
	}
	return b.String(), nil
}

func formatScalar(fv reflect.Value) (string, error) {
	switch fv.Kind() {
	case reflect.String:
		return fv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(fv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(fv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(fv.Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported kind %s", fv.Kind())
	}
}
