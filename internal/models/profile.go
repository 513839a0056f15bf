package models

// SearchProfile is the saved search a run is executed for.
type SearchProfile struct {
	ID                    string   `json:"id"`
	UserID                string   `json:"user_id,omitempty"`
	Name                  string   `json:"name"`
	RoleDescription       string   `json:"role_description"`
	CVContent             string   `json:"cv_content,omitempty"`
	SearchStrategy        string   `json:"search_strategy,omitempty"`
	LocationFilter        string   `json:"location_filter,omitempty"`
	WorkloadFilter        string   `json:"workload_filter,omitempty"` // e.g. "80-100%"
	PostedWithinDays      int      `json:"posted_within_days,omitempty"`
	MaxDistanceKm         int      `json:"max_distance,omitempty"`
	Latitude              *float64 `json:"latitude,omitempty"`
	Longitude             *float64 `json:"longitude,omitempty"`
	MaxQueries            int      `json:"max_queries,omitempty"`
	ScheduleEnabled       bool     `json:"schedule_enabled"`
	ScheduleIntervalHours int      `json:"schedule_interval_hours,omitempty"`
}

// Scope is the key under which already-seen listings are tracked. Listings
// are shared across all profiles of one user.
func (p SearchProfile) Scope() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.ID
}

// Coordinates returns the profile's reference point, if set.
func (p SearchProfile) Coordinates() *Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &Coordinates{Lat: *p.Latitude, Lon: *p.Longitude}
}
