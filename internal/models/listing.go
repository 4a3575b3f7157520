package models

import (
	"strconv"
	"time"
)

// Listing represents a property offer collected from the market
type Listing struct {
	ListingID    string    `json:"listing_id" dynamodbav:"listing_id"` // Primary Key
	CollectedAt  time.Time `json:"collected_at" dynamodbav:"collected_at"`
	Neighborhood string    `json:"neighborhood" dynamodbav:"neighborhood"`
	Type         string    `json:"type" dynamodbav:"type"` // house, apartment, lot
	Address      string    `json:"address" dynamodbav:"address"`
	PrivateArea  int       `json:"private_area" dynamodbav:"private_area"` // m2
	TotalPrice   float64   `json:"total_price" dynamodbav:"total_price"`
	PricePerM2   float64   `json:"price_per_m2" dynamodbav:"price_per_m2"`
	CondoFee     float64   `json:"condo_fee" dynamodbav:"condo_fee"`
	PropertyTax  float64   `json:"property_tax" dynamodbav:"property_tax"`
	Bedrooms     int       `json:"bedrooms" dynamodbav:"bedrooms"`
	Bathrooms    int       `json:"bathrooms" dynamodbav:"bathrooms"`
	ParkingSpots int       `json:"parking_spots" dynamodbav:"parking_spots"`
	Link         string    `json:"link" dynamodbav:"link"`
}

// ListingFilter is the closed set of searchable attributes. Nil fields are
// not part of the query; the sparse supplied subset is what gets recorded
// in search history.
type ListingFilter struct {
	Type         *string
	Neighborhood *string
	Bedrooms     *int
	Bathrooms    *int
	ParkingSpots *int
}

// IsEmpty reports whether no filter field is set.
func (f ListingFilter) IsEmpty() bool {
	return f.Type == nil && f.Neighborhood == nil &&
		f.Bedrooms == nil && f.Bathrooms == nil && f.ParkingSpots == nil
}

// Params returns the supplied fields as a flat string map for the audit
// record, omitting everything left unset.
func (f ListingFilter) Params() map[string]string {
	params := make(map[string]string)
	if f.Type != nil {
		params["type"] = *f.Type
	}
	if f.Neighborhood != nil {
		params["neighborhood"] = *f.Neighborhood
	}
	if f.Bedrooms != nil {
		params["bedrooms"] = strconv.Itoa(*f.Bedrooms)
	}
	if f.Bathrooms != nil {
		params["bathrooms"] = strconv.Itoa(*f.Bathrooms)
	}
	if f.ParkingSpots != nil {
		params["parking_spots"] = strconv.Itoa(*f.ParkingSpots)
	}
	return params
}

// Matches reports whether the listing satisfies every supplied filter field.
func (f ListingFilter) Matches(l *Listing) bool {
	if f.Type != nil && l.Type != *f.Type {
		return false
	}
	if f.Neighborhood != nil && l.Neighborhood != *f.Neighborhood {
		return false
	}
	if f.Bedrooms != nil && l.Bedrooms != *f.Bedrooms {
		return false
	}
	if f.Bathrooms != nil && l.Bathrooms != *f.Bathrooms {
		return false
	}
	if f.ParkingSpots != nil && l.ParkingSpots != *f.ParkingSpots {
		return false
	}
	return true
}
