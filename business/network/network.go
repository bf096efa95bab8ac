// Package network describes the passenger rail network the reporting covers: routes, the
// order of their stations, and the host railroad territories trains run over.
package network

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostType classifies a host railroad's role on a route
type HostType string

const (
	// LineHaul hosts dispatch the running segments of a route and are reported on
	LineHaul = HostType("line-haul")
	// Switching hosts only move equipment within yards, their mileage is reassigned to the
	// adjacent line-haul host
	Switching = HostType("switching")
	// Terminal hosts operate terminal trackage, their mileage is reassigned like switching hosts
	Terminal = HostType("terminal")
)

// HostTerritory is one host railroad's territory on a route
type HostTerritory struct {
	HostId string   `yaml:"host_id"`
	Type   HostType `yaml:"type"`
	// Miles is route miles operated over this territory, the train-miles basis for one run
	Miles    float64  `yaml:"miles"`
	Stations []string `yaml:"stations"`
}

// Route is one scheduled service with its ordered station stops
type Route struct {
	Id   string `yaml:"id"`
	Name string `yaml:"name"`
	// Stations lists station codes in timetable order
	Stations []string        `yaml:"stations"`
	Hosts    []HostTerritory `yaml:"hosts"`
}

// Network is the full set of routes the reporting covers
type Network struct {
	Routes []Route `yaml:"routes"`
}

// Load reads and validates a network description yaml file
func Load(path string) (*Network, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file %s: %w", path, err)
	}
	return Parse(contents)
}

// Parse decodes and validates network yaml
func Parse(contents []byte) (*Network, error) {
	var network Network
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&network); err != nil {
		return nil, fmt.Errorf("decoding network yaml: %w", err)
	}
	if err := network.Validate(); err != nil {
		return nil, err
	}
	return &network, nil
}

// Validate checks the network description for the problems that would make metric
// computations silently wrong
func (n *Network) Validate() error {
	if len(n.Routes) == 0 {
		return fmt.Errorf("network contains no routes")
	}
	seen := make(map[string]bool)
	for _, route := range n.Routes {
		if route.Id == "" {
			return fmt.Errorf("route %q is missing an id", route.Name)
		}
		if seen[route.Id] {
			return fmt.Errorf("route %s appears more than once", route.Id)
		}
		seen[route.Id] = true
		if len(route.Stations) < 2 {
			return fmt.Errorf("route %s needs at least two stations", route.Id)
		}
		for _, host := range route.Hosts {
			switch host.Type {
			case LineHaul, Switching, Terminal:
			default:
				return fmt.Errorf("route %s host %s has unknown type %q", route.Id, host.HostId, host.Type)
			}
			if host.Type == LineHaul && host.Miles <= 0 {
				return fmt.Errorf("route %s line-haul host %s has no mileage", route.Id, host.HostId)
			}
		}
	}
	return nil
}

// Route returns the route with routeId, or nil if the network does not describe it
func (n *Network) Route(routeId string) *Route {
	for i := range n.Routes {
		if n.Routes[i].Id == routeId {
			return &n.Routes[i]
		}
	}
	return nil
}

// IsLineHaul reports whether hostId dispatches running segments on routeId. Hosts the
// network does not describe are assumed to be line-haul.
func (n *Network) IsLineHaul(routeId, hostId string) bool {
	route := n.Route(routeId)
	if route == nil {
		return true
	}
	for _, host := range route.Hosts {
		if host.HostId == hostId {
			return host.Type == LineHaul
		}
	}
	return true
}

// StationOrder returns station code to timetable position for routeId, nil when the route
// is not described
func (n *Network) StationOrder(routeId string) map[string]int {
	route := n.Route(routeId)
	if route == nil {
		return nil
	}
	order := make(map[string]int, len(route.Stations))
	for i, code := range route.Stations {
		order[code] = i
	}
	return order
}

// LineHaulMiles returns host id to territory miles for the line-haul hosts of routeId
func (n *Network) LineHaulMiles(routeId string) map[string]float64 {
	route := n.Route(routeId)
	if route == nil {
		return nil
	}
	miles := make(map[string]float64)
	for _, host := range route.Hosts {
		if host.Type == LineHaul {
			miles[host.HostId] += host.Miles
		}
	}
	return miles
}
