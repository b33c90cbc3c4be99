package codec

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Field is a numeric field carried after the device identifier.
type Field string

const (
	FieldMoisture Field = "moisture_percent"
	FieldBattery  Field = "battery_centivolts"
)

const (
	deviceIDSize = 1
	fieldSize    = 4
)

// Layout is the field set of one protocol version.
type Layout struct {
	Version *semver.Version
	Fields  []Field
}

type layoutRule struct {
	constraint string
	fields     []Field
}

// Rules are checked in order; the first matching constraint wins.
var layoutRules = []layoutRule{
	{constraint: "~1.0", fields: []Field{FieldMoisture}},
	{constraint: ">= 1.1.0, < 2.0.0", fields: []Field{FieldMoisture, FieldBattery}},
}

// ParseLayout resolves the layout for a deployment's protocol version string.
func ParseLayout(version string) (Layout, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, version, err)
	}

	for _, rule := range layoutRules {
		c, err := semver.NewConstraint(rule.constraint)
		if err != nil {
			return Layout{}, fmt.Errorf("invalid layout constraint %q: %w", rule.constraint, err)
		}
		if c.Check(v) {
			return Layout{Version: v, Fields: rule.fields}, nil
		}
	}

	return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
}

// Size is the encoded uplink size in bytes.
func (l Layout) Size() int {
	return deviceIDSize + fieldSize*len(l.Fields)
}

// Has reports whether the layout carries field f.
func (l Layout) Has(f Field) bool {
	for _, field := range l.Fields {
		if field == f {
			return true
		}
	}
	return false
}
