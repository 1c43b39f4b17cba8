package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses a string into the target type T.
//
// Primitive targets (string, bool, int, uint, float) are converted directly.
// Complex targets (structs, maps, slices) are JSON-unmarshaled; when strict
// unmarshaling fails the content is run through jsonrepair and retried, which
// recovers the slightly-malformed JSON some models emit for tool arguments
// (single quotes, unquoted keys, trailing commas, truncated objects).
//
// Example:
//
//	args, err := ParseStringAs[WeatherArgs](`{city: 'NYC'}`) // repaired, then parsed
func ParseStringAs[T any](content string) (T, error) {
	var result T

	switch reflect.TypeFor[T]().Kind() {
	case reflect.String:
		reflect.ValueOf(&result).Elem().SetString(content)
		return result, nil

	case reflect.Bool:
		val, err := strconv.ParseBool(content)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetBool(val)
		return result, nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetFloat(val)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(content, 10, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetInt(val)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(content, 10, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetUint(val)
		return result, nil

	default:
		if err := json.Unmarshal([]byte(content), &result); err != nil {
			repaired, repairErr := jsonrepair.JSONRepair(content)
			if repairErr != nil {
				return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
			}
			if err = json.Unmarshal([]byte(repaired), &result); err != nil {
				return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original content: %s, repaired: %s)", result, err, content, repaired)
			}
		}
		return result, nil
	}
}

// RepairJSON returns a syntactically valid JSON document derived from
// content. Already-valid JSON is returned unchanged; otherwise jsonrepair is
// applied. An empty string repairs to an empty JSON object.
func RepairJSON(content string) (string, error) {
	if content == "" {
		return "{}", nil
	}
	if json.Valid([]byte(content)) {
		return content, nil
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return "", fmt.Errorf("failed to repair JSON: %w", err)
	}
	if !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("repaired JSON is still invalid: %s", TruncateString(repaired, DefaultMaxStringLength))
	}
	return repaired, nil
}
