// Package markers holds the content assertions the journey applies to each
// response. The strings are UI copy of the application under test, so they
// live here as data rather than inside the step logic.
package markers

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Check names, in the order the journey performs them.
const (
	LoadRegistration  = "Load registration page"
	FillRegistration  = "Fill in the registration fields"
	LoadProfile       = "Load profile page"
	UpgradeUser       = "Upgrade user"
	LoadDashboard     = "Load dashboard page"
	CreateDatabase    = "Create database"
	LoadProfileAgain  = "Load profile page 2"
	LoadHome          = "Load home page"
	LoadDatabase      = "Load database page"
	LoadBackups       = "Load backups page"
	CreatePoint       = "Create new point"
	LoadSQL           = "Load sql page"
	CreateTable       = "Create table test"
	InsertFirst       = "Insert into test 1"
	InsertSecond      = "Insert into test 2"
	LoadDatabaseAgain = "Load database page 2"
	LoadTables        = "Load tables page"
	LoadTable         = "Load table test page"
	LoadDatabaseThird = "Load database page 3"
	ResetPoints       = "Reset points page"
)

var journeyChecks = map[string]bool{
	LoadRegistration: true, FillRegistration: true, LoadProfile: true, UpgradeUser: true,
	LoadDashboard: true, CreateDatabase: true, LoadProfileAgain: true, LoadHome: true,
	LoadDatabase: true, LoadBackups: true, CreatePoint: true, LoadSQL: true,
	CreateTable: true, InsertFirst: true, InsertSecond: true, LoadDatabaseAgain: true,
	LoadTables: true, LoadTable: true, LoadDatabaseThird: true, ResetPoints: true,
}

// CheckSpec is the expectation for one response. Every condition must hold
// for the check to pass.
type CheckSpec struct {
	Status   int      `yaml:"status"`
	Contains []string `yaml:"contains"`
	Absent   []string `yaml:"absent"`
}

// Catalogue maps check names to their expectations.
type Catalogue struct {
	Name   string               `yaml:"name"`
	Checks map[string]CheckSpec `yaml:"checks"`
	// ResetPoints adds the trailing backup-points revisit to the journey.
	ResetPoints bool `yaml:"reset_points"`
}

// Lookup returns the spec for name. Unknown names get a bare 200 check so a
// trimmed catalogue still records an outcome for every step.
func (c *Catalogue) Lookup(name string) CheckSpec {
	if c != nil {
		if spec, ok := c.Checks[name]; ok {
			if spec.Status == 0 {
				spec.Status = http.StatusOK
			}
			return spec
		}
	}
	return CheckSpec{Status: http.StatusOK}
}

// Names returns the check names in sorted order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.Checks))
	for name := range c.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownNames returns, sorted, the check names the journey never performs.
// A markers file naming one of these has no effect, usually because of a typo.
func (c *Catalogue) UnknownNames() []string {
	var unknown []string
	for _, name := range c.Names() {
		if !journeyChecks[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Clone returns a deep copy.
func (c *Catalogue) Clone() *Catalogue {
	out := &Catalogue{Name: c.Name, ResetPoints: c.ResetPoints, Checks: make(map[string]CheckSpec, len(c.Checks))}
	for name, spec := range c.Checks {
		out.Checks[name] = CheckSpec{
			Status:   spec.Status,
			Contains: append([]string(nil), spec.Contains...),
			Absent:   append([]string(nil), spec.Absent...),
		}
	}
	return out
}

// ForStrictness returns the built-in catalogue for a strictness level.
func ForStrictness(level string) (*Catalogue, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "strict":
		return Strict(), nil
	case "loose":
		return Loose(), nil
	default:
		return nil, fmt.Errorf("unknown strictness %q", level)
	}
}

// LoadFile reads a YAML catalogue and overlays it on base. Checks named in
// the file replace the base entry wholesale.
func LoadFile(path string, base *Catalogue) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("markers file: %w", err)
	}
	return Parse(data, base)
}

// Parse decodes a YAML catalogue and overlays it on base.
func Parse(data []byte, base *Catalogue) (*Catalogue, error) {
	var overlay struct {
		Name        string               `yaml:"name"`
		Checks      map[string]CheckSpec `yaml:"checks"`
		ResetPoints *bool                `yaml:"reset_points"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse markers: %w", err)
	}

	out := &Catalogue{Checks: map[string]CheckSpec{}}
	if base != nil {
		out = base.Clone()
	}
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.ResetPoints != nil {
		out.ResetPoints = *overlay.ResetPoints
	}
	for name, spec := range overlay.Checks {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("parse markers: check name cannot be empty")
		}
		if spec.Status < 0 || spec.Status > 599 {
			return nil, fmt.Errorf("parse markers: check %q: invalid status %d", name, spec.Status)
		}
		out.Checks[name] = spec
	}
	return out, nil
}
