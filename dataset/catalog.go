package dataset

// ProfileSource is the identifier of the fault-profile source.
const ProfileSource = "profile"

// WindowSeconds is the length of one test run.
const WindowSeconds = 60

// Sensor describes one sensor source of the hydraulic test rig.
type Sensor struct {
	ID       string `json:"id"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	RateHz   int    `json:"rate_hz"`
}

// Samples is the number of columns a source of this sensor holds.
func (s Sensor) Samples() int { return s.RateHz * WindowSeconds }

// sources is the raw file list in canonical order. Sensor iteration order
// everywhere (column concatenation, sensors.csv) is this order minus the
// profile entry.
var sources = []string{
	"CE", "EPS1", "PS1", "PS5", "TS2",
	"CP", "FS1", "PS2", "PS6", "TS3",
	"FS2", "PS3", "SE", "TS4", ProfileSource,
	"PS4", "TS1", "VS1",
}

var sensors = map[string]Sensor{
	"PS1":  {ID: "PS1", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"PS2":  {ID: "PS2", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"PS3":  {ID: "PS3", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"PS4":  {ID: "PS4", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"PS5":  {ID: "PS5", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"PS6":  {ID: "PS6", Quantity: "pressure", Unit: "bar", RateHz: 100},
	"EPS1": {ID: "EPS1", Quantity: "motor power", Unit: "W", RateHz: 100},
	"FS1":  {ID: "FS1", Quantity: "volume flow", Unit: "l/min", RateHz: 10},
	"FS2":  {ID: "FS2", Quantity: "volume flow", Unit: "l/min", RateHz: 10},
	"TS1":  {ID: "TS1", Quantity: "temperature", Unit: "°C", RateHz: 1},
	"TS2":  {ID: "TS2", Quantity: "temperature", Unit: "°C", RateHz: 1},
	"TS3":  {ID: "TS3", Quantity: "temperature", Unit: "°C", RateHz: 1},
	"TS4":  {ID: "TS4", Quantity: "temperature", Unit: "°C", RateHz: 1},
	"VS1":  {ID: "VS1", Quantity: "vibration", Unit: "mm/s", RateHz: 1},
	"CE":   {ID: "CE", Quantity: "cooling efficiency", Unit: "%", RateHz: 1},
	"CP":   {ID: "CP", Quantity: "cooling power", Unit: "kW", RateHz: 1},
	"SE":   {ID: "SE", Quantity: "efficiency factor", Unit: "%", RateHz: 1},
}

// Sources returns the 18 raw source identifiers in canonical order.
func Sources() []string {
	return append([]string(nil), sources...)
}

// SensorIDs returns the identifiers in ids that are not the profile source,
// preserving order.
func SensorIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != ProfileSource {
			out = append(out, id)
		}
	}
	return out
}

// LookupSensor returns catalog metadata for a sensor identifier.
func LookupSensor(id string) (Sensor, bool) {
	s, ok := sensors[id]
	return s, ok
}
