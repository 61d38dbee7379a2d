package models

import "fmt"

// Parameter identifies a measured quantity recorded on a vessel.
type Parameter int

const (
	Latitude Parameter = iota
	Longitude
	Speed
	SteeringOrder
	SteeringAngle
	Heading
	Course
	FuelConsumption
	RudderOrder
	RudderAngle

	parameterCount
)

type parameterInfo struct {
	wireID    string
	shortName string
}

// parameterTable is indexed by Parameter. Its length is fixed by
// parameterCount so adding a variant without an entry leaves a zero row,
// which TestParameterTableIsTotal rejects.
var parameterTable = [parameterCount]parameterInfo{
	Latitude:        {wireID: "positioningsystem_latitude_deg_1", shortName: "latitude"},
	Longitude:       {wireID: "positioningsystem_longitude_deg_1", shortName: "longitude"},
	Speed:           {wireID: "positioningsystem_sog_kn_1", shortName: "sog"},
	SteeringOrder:   {wireID: "steering_order_deg_1", shortName: "steering_order"},
	SteeringAngle:   {wireID: "steering_angle_deg_1", shortName: "steering_angle"},
	Heading:         {wireID: "positioningsystem_heading_deg_1", shortName: "heading"},
	Course:          {wireID: "positioningsystem_cog_deg_1", shortName: "cog"},
	FuelConsumption: {wireID: "enginemain_fuelcons_lph_1", shortName: "enginemain_fuelcons"},
	RudderOrder:     {wireID: "rudder_order_deg_1", shortName: "rudder_order"},
	RudderAngle:     {wireID: "rudder_angle_deg_1", shortName: "rudder_angle"},
}

var shortNameIndex = func() map[string]Parameter {
	idx := make(map[string]Parameter, len(parameterTable))
	for p, info := range parameterTable {
		idx[info.shortName] = Parameter(p)
	}
	return idx
}()

// AllParameters returns every parameter in declaration order.
func AllParameters() []Parameter {
	out := make([]Parameter, 0, parameterCount)
	for p := Parameter(0); p < parameterCount; p++ {
		out = append(out, p)
	}
	return out
}

// NonPositional returns every parameter except latitude and longitude.
func NonPositional() []Parameter {
	out := make([]Parameter, 0, parameterCount-2)
	for _, p := range AllParameters() {
		if !p.IsPositional() {
			out = append(out, p)
		}
	}
	return out
}

// Valid reports whether p is a declared variant.
func (p Parameter) Valid() bool {
	return p >= 0 && p < parameterCount
}

// IsPositional reports whether p is one of the coordinate streams.
func (p Parameter) IsPositional() bool {
	return p == Latitude || p == Longitude
}

// WireID is the parameter_id used by the data hub.
func (p Parameter) WireID() string {
	if !p.Valid() {
		return ""
	}
	return parameterTable[p].wireID
}

// ShortName is the name used for export files and logs.
func (p Parameter) ShortName() string {
	if !p.Valid() {
		return ""
	}
	return parameterTable[p].shortName
}

func (p Parameter) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return parameterTable[p].shortName
}

// ParseParameter looks a parameter up by its short name.
func ParseParameter(shortName string) (Parameter, error) {
	if p, ok := shortNameIndex[shortName]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown parameter %q", shortName)
}
