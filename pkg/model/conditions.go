package model

// Defaults applied per field when the conditions provider omits a value.
const (
	DefaultTemperatureCelsius = 25.0
	DefaultDescription        = "clear sky"
	DefaultHumidityPercent    = 50
	DefaultWindSpeed          = 5.0
)

// ConditionsSnapshot is a fully populated current-weather summary.
type ConditionsSnapshot struct {
	TemperatureCelsius       float64 `json:"temperature"`
	Description              string  `json:"description"`
	HumidityPercent          int     `json:"humidity"`
	WindSpeedMetersPerSecond float64 `json:"windSpeed"`

	// Observed is false when no upstream answer was available and every
	// field carries its default.
	Observed bool `json:"observed"`
}

// DefaultConditions returns the snapshot used when nothing was observed.
func DefaultConditions() ConditionsSnapshot {
	return ConditionsSnapshot{
		TemperatureCelsius:       DefaultTemperatureCelsius,
		Description:              DefaultDescription,
		HumidityPercent:          DefaultHumidityPercent,
		WindSpeedMetersPerSecond: DefaultWindSpeed,
	}
}
