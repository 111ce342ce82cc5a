package domain

// RescueType names one of the dashboard's preset filters.
type RescueType string

const (
	RescueAll      RescueType = "All"
	RescueWater    RescueType = "Water Rescue"
	RescueMountain RescueType = "Mountain or Wilderness Rescue"
	RescueDisaster RescueType = "Disaster or Individual Tracking"
)

// Filter restricts records by breed, sex upon outcome and age in weeks.
// The zero value matches every record.
type Filter struct {
	Breeds      []string
	Sex         string
	MinAgeWeeks float64
	MaxAgeWeeks float64
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return len(f.Breeds) == 0 && f.Sex == "" && f.MinAgeWeeks == 0 && f.MaxAgeWeeks == 0
}

var rescueFilters = map[RescueType]Filter{
	RescueWater: {
		Breeds:      []string{"Labrador Retriever Mix", "Chesapeake Bay Retriever", "Newfoundland"},
		Sex:         "Intact Female",
		MinAgeWeeks: 26,
		MaxAgeWeeks: 156,
	},
	RescueMountain: {
		Breeds:      []string{"German Shepherd", "Alaskan Malamute", "Old English Sheepdog", "Siberian Husky", "Rottweiler"},
		Sex:         "Intact Male",
		MinAgeWeeks: 26,
		MaxAgeWeeks: 156,
	},
	RescueDisaster: {
		Breeds:      []string{"Doberman Pinscher", "German Shepherd", "Golden Retriever", "Bloodhound", "Rottweiler"},
		Sex:         "Intact Male",
		MinAgeWeeks: 20,
		MaxAgeWeeks: 300,
	},
}

// FilterFor returns the preset filter for a rescue type. Unknown names,
// including "All" and "", yield the zero Filter.
func FilterFor(t RescueType) Filter {
	f, ok := rescueFilters[t]
	if !ok {
		return Filter{}
	}
	f.Breeds = append([]string(nil), f.Breeds...)
	return f
}

// RescueTypes lists the preset names in display order.
func RescueTypes() []RescueType {
	return []RescueType{RescueAll, RescueWater, RescueMountain, RescueDisaster}
}
