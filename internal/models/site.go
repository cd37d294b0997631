package models

import "github.com/langchou/chargebook/internal/api/ampeco"

// Site is a location with its display fields resolved.
type Site struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postalCode"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timezone   string  `json:"timezone"`
}

// NewSite flattens an Ampeco location.
func NewSite(loc ampeco.Location) Site {
	return Site{
		ID:         loc.ID,
		Name:       loc.Name.String(),
		Address:    loc.Address.String(),
		City:       loc.City,
		State:      loc.State,
		Country:    loc.Country,
		PostalCode: loc.PostalCode,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Timezone:   loc.Timezone,
	}
}

// Port is a bookable EVSE as shown on the site page.
type Port struct {
	EVSEID            int64   `json:"evseId"`
	NetworkID         string  `json:"networkId"`
	ConnectorType     string  `json:"connectorType"`
	MaxPowerKW        float64 `json:"maxPowerKw"`
	ChargePointName   string  `json:"chargePointName"`
	Label             string  `json:"label,omitempty"`
	PhysicalReference string  `json:"physicalReference,omitempty"`
	CurrentType       string  `json:"currentType,omitempty"`
}

func NewPort(evse ampeco.EVSE, chargePointName string) Port {
	return Port{
		EVSEID:            evse.ID,
		NetworkID:         evse.NetworkID,
		ConnectorType:     evse.ConnectorType,
		MaxPowerKW:        evse.PowerKW(),
		ChargePointName:   chargePointName,
		Label:             evse.Label,
		PhysicalReference: evse.PhysicalReference,
		CurrentType:       evse.CurrentType,
	}
}

// SiteDetail is a site together with its bookable ports.
type SiteDetail struct {
	Site
	EVSEs []Port `json:"evses"`
}
