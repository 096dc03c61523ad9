package dataset

// Housing column names.
const (
	Longitude        = "longitude"
	Latitude         = "latitude"
	HousingMedianAge = "housing_median_age"
	TotalRooms       = "total_rooms"
	TotalBedrooms    = "total_bedrooms"
	Population       = "population"
	Households       = "households"
	MedianIncome     = "median_income"
	MedianHouseValue = "median_house_value"
	OceanProximity   = "ocean_proximity"

	// IncomeCat is the derived stratification label.
	IncomeCat = "income_cat"

	RoomsPerHousehold      = "rooms_per_household"
	BedroomsPerRoom        = "bedrooms_per_room"
	PopulationPerHousehold = "population_per_household"
)

// Column describes one expected input column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of expected columns.
type Schema []Column

// HousingSchema is the column layout of housing.csv.
var HousingSchema = Schema{
	{Longitude, Numeric},
	{Latitude, Numeric},
	{HousingMedianAge, Numeric},
	{TotalRooms, Numeric},
	{TotalBedrooms, Numeric},
	{Population, Numeric},
	{Households, Numeric},
	{MedianIncome, Numeric},
	{MedianHouseValue, Numeric},
	{OceanProximity, Categorical},
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Without returns a copy of the schema with the named columns removed.
func (s Schema) Without(names ...string) Schema {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := make(Schema, 0, len(s))
	for _, c := range s {
		if _, ok := skip[c.Name]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the column called name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
