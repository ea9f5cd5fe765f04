// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feature: ORCHESTRATOR_INVENTORY_SNAPSHOT
// Spec: spec.md section 4.4; grounded on pkg/config's yaml.v3-backed
// Config.Load idiom for the CLI's illustrative fleet snapshot file.

// Snapshot is the YAML document a CLI invocation loads to seed Tables
// before planning a strategy. Nothing in the orchestrator core depends on
// this format -- it is purely a stand-in for the real inventory backend
// Non-goals exclude.
type Snapshot struct {
	Hosts []struct {
		UUID         string `yaml:"uuid"`
		Name         string `yaml:"name"`
		Personality  string `yaml:"personality"`
		Admin        string `yaml:"admin"`
		Oper         string `yaml:"oper"`
		Avail        string `yaml:"avail"`
		SoftwareLoad string `yaml:"software_load"`
		TargetLoad   string `yaml:"target_load"`
	} `yaml:"hosts"`
	Instances []struct {
		UUID     string `yaml:"uuid"`
		Name     string `yaml:"name"`
		HostName string `yaml:"host_name"`
	} `yaml:"instances"`
}

// LoadSnapshot reads a fleet snapshot file and returns populated Tables.
func LoadSnapshot(path string) (*Tables, error) {
	//nolint:gosec // G304: path is an operator-supplied CLI flag, not derived from untrusted input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing fleet snapshot: %w", err)
	}

	tables := NewTables()
	for _, h := range snap.Hosts {
		tables.PutHost(Host{
			UUID:         h.UUID,
			Name:         h.Name,
			Personality:  Personality(h.Personality),
			Admin:        AdministrativeState(h.Admin),
			Oper:         OperationalState(h.Oper),
			Avail:        Availability(h.Avail),
			SoftwareLoad: h.SoftwareLoad,
			TargetLoad:   h.TargetLoad,
			HostServices: map[string]HostServiceState{},
		})
	}
	for _, i := range snap.Instances {
		tables.PutInstance(Instance{
			UUID:     i.UUID,
			Name:     i.Name,
			HostName: i.HostName,
			Admin:    AdminUnlocked,
			Oper:     OperEnabled,
		})
	}
	return tables, nil
}
