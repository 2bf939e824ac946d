package prompting

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Context is the key/value record describing the current subject. No schema is enforced;
// any field is available for placeholder substitution.
type Context map[string]interface{}

// Well-known context fields
const (
	FieldPatientAge         = "patientAge"
	FieldPatientGender      = "patientGender"
	FieldMedicalHistory     = "medicalHistory"
	FieldCurrentMedications = "currentMedications"
	FieldAllergies          = "allergies"
	FieldVitalSigns         = "vitalSigns"
	FieldLabResults         = "labResults"
	FieldSymptoms           = "symptoms"
	FieldDiagnosis          = "diagnosis"
	FieldCondition          = "condition"
	FieldHistory            = "history"
	FieldInput              = "input"
	FieldEmergency          = "emergency"
)

// DefaultContext returns the empty patient record
func DefaultContext() Context {
	return Context{
		FieldPatientAge:         "",
		FieldPatientGender:      "",
		FieldMedicalHistory:     "",
		FieldCurrentMedications: "",
		FieldAllergies:          "",
		FieldVitalSigns:         map[string]interface{}{},
		FieldLabResults:         map[string]interface{}{},
	}
}

// Clone returns a shallow copy. Nested maps are shared.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a new Context with the fields of each layer applied in order; later layers win.
// Nested values are replaced, not merged.
func Merge(layers ...Context) Context {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	out := make(Context, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// Text returns the field as substitution text and whether it is set (present and not blank).
func (c Context) Text(key string) (string, bool) {
	v, ok := c[key]
	if !ok || isBlank(v) {
		return "", false
	}
	return textOf(v), true
}

// isBlank reports values that count as "not provided": nil, empty strings, false, zero numbers
// and empty collections.
func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || f != f
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func textOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			pairs = append(pairs, fmt.Sprintf("%v: %s", k.Interface(), textOf(rv.MapIndex(k).Interface())))
		}
		sort.Strings(pairs)
		return strings.Join(pairs, ", ")
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = textOf(rv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
