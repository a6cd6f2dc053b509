package fakeapi

import (
	"time"

	"github.com/alexhail/quickcontroller/devices"
)

// Demo fixtures used by the development server
const (
	DemoEmail       = "demo@example.com"
	DemoPassword    = "Demo1234"
	DemoInstanceURL = "http://homeassistant.local:8123"
	DemoAccessToken = "demo-long-lived-token"
)

// DemoEntities returns a mix of healthy, stale and unavailable entities
// relative to now.
func DemoEntities(now time.Time) []devices.Entity {
	entity := func(id, state, name string, age time.Duration) devices.Entity {
		ts := now.Add(-age)
		return devices.Entity{
			ID:           id,
			State:        state,
			LastChanged:  ts,
			LastUpdated:  ts,
			FriendlyName: name,
			Domain:       devices.DomainOf(id),
			Attributes:   map[string]any{"friendly_name": name},
		}
	}
	return []devices.Entity{
		entity("light.kitchen", "on", "Kitchen Light", 30*time.Second),
		entity("light.porch", "off", "Porch Light", 2*time.Minute),
		entity("light.garage", "unavailable", "Garage Light", time.Minute),
		entity("sensor.outdoor_temperature", "18.5", "Outdoor Temperature", 45*time.Second),
		entity("sensor.basement_humidity", "61", "Basement Humidity", 3*time.Hour),
		entity("switch.coffee_maker", "off", "Coffee Maker", 4*time.Minute),
		entity("binary_sensor.front_door", "Unknown", "Front Door", 10*time.Second),
	}
}

// SeedDemo creates the demo account and a discoverable demo instance.
func (s *Server) SeedDemo() error {
	if _, ok := s.users.idForEmail(DemoEmail); !ok {
		if err := s.CreateUser(DemoEmail, DemoPassword); err != nil {
			return err
		}
	}
	s.AddInstance(Instance{
		Name:         "Home",
		URL:          DemoInstanceURL,
		Addresses:    []string{"192.168.1.20:8123"},
		AccessToken:  DemoAccessToken,
		Version:      "2024.6.1",
		Discoverable: true,
		Entities:     DemoEntities(s.nowFunc()),
	})
	return nil
}
