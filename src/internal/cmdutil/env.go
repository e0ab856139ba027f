package cmdutil

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// Decoder decodes an env file.
type Decoder interface {
	Decode() (map[string]string, error)
}

// MapDecoder is a Decoder over a fixed map, mostly useful in tests.
type MapDecoder map[string]string

// Decode implements Decoder.
func (m MapDecoder) Decode() (map[string]string, error) {
	return m, nil
}

// ByteSize is a size in bytes that is populated from human readable values such as "10MiB" or
// "512k".
type ByteSize int64

// Populate populates an object with environment variables.  Fields are selected with a tag of the
// form `env:"KEY"`, `env:"KEY,required"` or `env:"KEY,default=VALUE"`.
//
// The environment has precedence over the decoders, earlier decoders have precedence over later
// decoders.
func Populate(object interface{}, decoders ...Decoder) error {
	decoderMap, err := getDecoderMap(decoders)
	if err != nil {
		return err
	}
	return populateInternal(reflect.ValueOf(object), decoderMap, false)
}

const (
	cannotParseErr              = "cannot parse"
	envKeyNotSetWhenRequiredErr = "env key not set when required"
	expectedPointerErr          = "expected pointer"
	expectedStructErr           = "expected struct"
	fieldTypeNotAllowedErr      = "field type not allowed"
	invalidTagErr               = "invalid tag, must be KEY,{required},{default=DEFAULT_VALUE}"
)

// Types parsed directly from their string form instead of by kind.
var knownTypes = map[reflect.Type]func(string) (any, error){
	reflect.TypeOf(ByteSize(0)): func(x string) (any, error) {
		n, err := units.RAMInBytes(x)
		return ByteSize(n), err //nolint:wrapcheck
	},
	reflect.TypeOf(time.Duration(0)): func(x string) (any, error) {
		return time.ParseDuration(x) //nolint:wrapcheck
	},
}

func populateInternal(reflectValue reflect.Value, decoderMap map[string]string, recursive bool) error {
	if reflectValue.Type().Kind() == reflect.Ptr {
		reflectValue = reflectValue.Elem()
	} else if !recursive {
		return errors.Errorf("%s: %v", expectedPointerErr, reflectValue.Type())
	}
	if reflectValue.Type().Kind() != reflect.Struct {
		return errors.Errorf("%s: %v", expectedStructErr, reflectValue.Type())
	}
	for i := 0; i < reflectValue.NumField(); i++ {
		structField := reflectValue.Type().Field(i)
		if structField.Type.Kind() == reflect.Struct {
			if err := populateInternal(reflectValue.Field(i), decoderMap, true); err != nil {
				return err
			}
			continue
		}
		tag, err := getEnvTag(structField)
		if err != nil {
			return err
		}
		if tag == nil {
			continue
		}
		value := getValue(tag.key, tag.defaultValue, decoderMap)
		if value == "" {
			if tag.required {
				return errors.Errorf("%s: %s %v", envKeyNotSetWhenRequiredErr, tag.key, reflectValue.Type())
			}
			continue
		}
		parsedValue, err := parseField(structField, value)
		if err != nil {
			return errors.Wrapf(err, "%s", tag.key)
		}
		reflectValue.Field(i).Set(reflect.ValueOf(parsedValue).Convert(structField.Type))
	}
	return nil
}

func getDecoderMap(decoders []Decoder) (map[string]string, error) {
	env := make(map[string]string)
	for _, decoder := range decoders {
		subEnv, err := decoder.Decode()
		if err != nil {
			return nil, errors.EnsureStack(err)
		}
		for key, value := range subEnv {
			if value == "" {
				continue
			}
			if _, ok := env[key]; !ok {
				env[key] = value
			}
		}
	}
	return env, nil
}

func getValue(key string, defaultValue string, decoderMap map[string]string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := decoderMap[key]; value != "" {
		return value
	}
	return defaultValue
}

type envTag struct {
	key          string
	required     bool
	defaultValue string
}

func getEnvTag(structField reflect.StructField) (*envTag, error) {
	tag := structField.Tag.Get("env")
	if tag == "" {
		return nil, nil
	}
	split := strings.SplitN(tag, ",", 2)
	result := &envTag{key: split[0]}
	if len(split) == 1 {
		return result, nil
	}
	split = strings.SplitN(strings.TrimSpace(split[1]), "=", 2)
	switch split[0] {
	case "required":
		result.required = true
	case "default":
		if len(split) != 2 {
			return nil, errors.Errorf("%s: %s", invalidTagErr, tag)
		}
		result.defaultValue = split[1]
	default:
		return nil, errors.Errorf("%s: %s", invalidTagErr, tag)
	}
	return result, nil
}

func parseField(structField reflect.StructField, value string) (interface{}, error) {
	if parser, ok := knownTypes[structField.Type]; ok {
		v, err := parser(value)
		if err != nil {
			return nil, errors.Wrap(err, cannotParseErr)
		}
		return v, nil
	}
	switch kind := structField.Type.Kind(); kind {
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.Wrap(err, cannotParseErr)
		}
		return v, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(value, 10, structField.Type.Bits())
		if err != nil {
			return nil, errors.Wrap(err, cannotParseErr)
		}
		return v, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(value, 10, structField.Type.Bits())
		if err != nil {
			return nil, errors.Wrap(err, cannotParseErr)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, structField.Type.Bits())
		if err != nil {
			return nil, errors.Wrap(err, cannotParseErr)
		}
		return v, nil
	case reflect.String:
		return value, nil
	default:
		return nil, errors.Errorf("%s: %v", fieldTypeNotAllowedErr, kind)
	}
}
