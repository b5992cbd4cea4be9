// Package mock provides a synthetic telemetry source so the wall and
// server can run without real network hardware.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// Site names for realistic demo data
var siteNames = []string{
	"HQ", "Water Tower", "Grain Elevator", "North Ridge",
	"Main Street POP", "Industrial Park", "Fairgrounds",
}

type fleetDevice struct {
	sample  domain.DeviceSample
	offline bool
	// flappy devices bounce on a short random period
	flappy bool
}

// Source is an in-process telemetry source producing a stable synthetic
// fleet with a few devices that go down or flap over time.
type Source struct {
	id   string
	name string

	mu    sync.Mutex
	rng   *rand.Rand
	fleet []fleetDevice
}

// NewSource builds a demo fleet: gateways, APs, routers, switches and a
// couple of stations (which the monitor will discard).
func NewSource(id string) *Source {
	s := &Source{
		id:   id,
		name: "Demo Fleet",
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.fleet = s.buildFleet()
	return s
}

func (s *Source) ID() string   { return s.id }
func (s *Source) Name() string { return s.name }

func (s *Source) buildFleet() []fleetDevice {
	var fleet []fleetDevice
	add := func(role domain.Role, name, site string, flappy bool) {
		mac := fmt.Sprintf("DE:AD:%02X:%02X:%02X:%02X",
			s.rng.Intn(256), s.rng.Intn(256), s.rng.Intn(256), s.rng.Intn(256))
		fleet = append(fleet, fleetDevice{
			flappy: flappy,
			sample: domain.DeviceSample{
				Key:        mac,
				MAC:        mac,
				Name:       name,
				Role:       role,
				Site:       site,
				Online:     true,
				SourceID:   s.id,
				SourceName: s.name,
			},
		})
	}

	add(domain.RoleGateway, "Gateway-1", siteNames[0], false)
	add(domain.RoleGateway, "Gateway-2", siteNames[4], false)
	for i := 1; i <= 6; i++ {
		add(domain.RoleAP, fmt.Sprintf("AP-%d", i), siteNames[s.rng.Intn(len(siteNames))], i == 3)
	}
	add(domain.RoleRouter, "Router-Core", siteNames[0], false)
	add(domain.RoleSwitch, "Switch-Agg", siteNames[0], false)
	add(domain.RoleSwitch, "Switch-Edge", siteNames[5], false)
	add(domain.RoleStation, "CPE-Farmhouse", siteNames[3], false)
	add(domain.RoleStation, "CPE-Silo", siteNames[2], false)
	return fleet
}

// FetchDevices produces the current synthetic fleet snapshot. Latency
// and load metrics jitter each call; flappy devices bounce between
// polls and one AP drops for a longer stretch occasionally.
func (s *Source) FetchDevices(_ context.Context) ([]domain.DeviceSample, int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]domain.DeviceSample, 0, len(s.fleet))
	for i := range s.fleet {
		d := &s.fleet[i]
		if d.flappy && s.rng.Intn(4) == 0 {
			d.offline = !d.offline
		} else if !d.flappy && s.rng.Intn(120) == 0 {
			d.offline = !d.offline
		}

		sample := d.sample
		sample.Online = !d.offline
		if sample.Online {
			cpu := float64(5 + s.rng.Intn(40))
			ram := float64(20 + s.rng.Intn(50))
			temp := float64(35 + s.rng.Intn(25))
			lat := 2 + s.rng.Float64()*30
			up := float64(3600 * (24 + s.rng.Intn(400)))
			sample.CPU = &cpu
			sample.RAM = &ram
			sample.Temperature = &temp
			sample.LatencyMs = &lat
			sample.UptimeSec = &up
		}
		samples = append(samples, sample)
	}

	rtt := time.Duration(5+s.rng.Intn(40)) * time.Millisecond
	return samples, 200, rtt, nil
}
