package route

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// BindError reports a parameter that could not be converted.
type BindError struct {
	Param string
	Value string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("param %q: %v", e.Param, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// Bind populates the fields of the struct target points to from p, using
// `param` tags:
//
//	type ShowParams struct {
//	    ID    uuid.UUID `param:"id"`
//	    Page  int       `param:"page"`
//	    Tags  []string  `param:"tag"`
//	}
//
// Slice fields receive every value of a multi-valued parameter; other fields
// take the first. Absent parameters leave fields untouched.
func Bind(p Params, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("route: bind target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("route: bind target must point to a struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("param")
		if name == "" || name == "-" {
			continue
		}
		values, ok := p[name]
		if !ok || len(values) == 0 {
			continue
		}
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if fv.Kind() == reflect.Slice && fv.Type() != uuidType {
			out := reflect.MakeSlice(fv.Type(), len(values), len(values))
			for j, s := range values {
				if err := setField(out.Index(j), s); err != nil {
					return &BindError{Param: name, Value: s, Err: err}
				}
			}
			fv.Set(out)
			continue
		}
		if err := setField(fv, values[0]); err != nil {
			return &BindError{Param: name, Value: values[0], Err: err}
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Type() {
	case uuidType:
		id, err := uuid.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid UUID: %s", value)
		}
		field.Set(reflect.ValueOf(id))
		return nil
	case durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	case reflect.Pointer:
		elem := reflect.New(field.Type().Elem())
		if err := setField(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)

	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
