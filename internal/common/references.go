// Config values may reference environment variables as {NAME}, which keeps
// credentials out of committed TOML files:
//
//	[login]
//	password = "{GRIDCHECK_PASSWORD}"
//
// Unresolved references are left in place and logged. Resolved values are
// never logged.

package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {NAME} references
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces every {NAME} in input with values[NAME]
func ReplaceKeyReferences(input string, values map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}
	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := values[name]; ok {
			return value
		}
		logger.Warn().Str("reference", match).Msg("Unresolved config reference")
		return match
	})
}

// ReplaceInStruct resolves references in every exported string, string
// slice and nested struct field of the struct v points to
func ReplaceInStruct(v interface{}, values map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}
	replaceInStructValue(val, "", values, logger)
	return nil
}

func replaceInStructValue(val reflect.Value, prefix string, values map[string]string, logger arbor.ILogger) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		name := prefix + typ.Field(i).Name

		switch field.Kind() {
		case reflect.String:
			if replaced := ReplaceKeyReferences(field.String(), values, logger); replaced != field.String() {
				field.SetString(replaced)
				logger.Debug().Str("field", name).Msg("Resolved config reference")
			}
		case reflect.Struct:
			replaceInStructValue(field, name+".", values, logger)
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaceInStructValue(field.Elem(), name+".", values, logger)
			}
		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				elem.SetString(ReplaceKeyReferences(elem.String(), values, logger))
			}
		}
	}
}
