package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameFormat    = "format"
	FieldNameDirection = "direction"
	FieldNameType      = "type"
)

// FieldModule returns a zap field with the module name.
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent returns a zap field with the component name.
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldFormat returns a zap field naming the archive format.
func FieldFormat(format string) zap.Field {
	return zap.String(FieldNameFormat, format)
}

// FieldDirection returns a zap field naming the archive direction.
func FieldDirection(direction string) zap.Field {
	return zap.String(FieldNameDirection, direction)
}

// FieldType returns a zap field naming a Go type.
func FieldType(typ string) zap.Field {
	return zap.String(FieldNameType, typ)
}

func FieldObject(key string, obj zapcore.ObjectMarshaler) zap.Field {
	return zap.Object(key, obj)
}
