package model

// Property is the slice of a catalog listing this service needs. It is owned by the
// catalog and never written here.
type Property struct {
	ID            string `json:"id" bson:"_id"`
	HostID        string `json:"host_id" bson:"host_id"`
	PricePerNight Money  `json:"price_per_night" bson:"price_per_night"`
	MaxGuests     int    `json:"max_guests" bson:"max_guests"`
}
