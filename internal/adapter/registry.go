package adapter

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// VenueSpec describes how to address one conference on the upstream
// platform. Templates carry a single %d verb for the year.
type VenueSpec struct {
	IDTemplate        string `yaml:"id_template"`
	LegacyInvitation  string `yaml:"legacy_invitation"`
	RevisedInvitation string `yaml:"revised_invitation"`
}

// ID renders the venue identifier for a year.
func (v VenueSpec) ID(year int) string {
	return fmt.Sprintf(v.IDTemplate, year)
}

// Invitation renders the submission invitation for a year under the
// given API generation.
func (v VenueSpec) Invitation(year int, legacy bool) string {
	if legacy {
		return fmt.Sprintf(v.LegacyInvitation, year)
	}
	return fmt.Sprintf(v.RevisedInvitation, year)
}

// Registry maps venue names to their upstream addressing templates.
type Registry struct {
	Venues map[string]VenueSpec `yaml:"venues"`
}

// DefaultRegistry returns the built-in venue set.
func DefaultRegistry() *Registry {
	return &Registry{
		Venues: map[string]VenueSpec{
			"ICLR": {
				IDTemplate:        "ICLR.cc/%d/Conference",
				LegacyInvitation:  "ICLR.cc/%d/Conference/-/Blind_Submission",
				RevisedInvitation: "ICLR.cc/%d/Conference/-/Submission",
			},
			"NeurIPS": {
				IDTemplate:        "NeurIPS.cc/%d/Conference",
				LegacyInvitation:  "NeurIPS.cc/%d/Conference/-/Blind_Submission",
				RevisedInvitation: "NeurIPS.cc/%d/Conference/-/Submission",
			},
		},
	}
}

// LoadRegistry reads a venue registry from a yaml file. A missing file is
// not an error; the built-in defaults are returned instead.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRegistry(), nil
		}
		return nil, eris.Wrapf(err, "adapter: read registry %s", path)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrapf(err, "adapter: parse registry %s", path)
	}
	if len(reg.Venues) == 0 {
		return DefaultRegistry(), nil
	}
	return &reg, nil
}

// Resolve returns the spec for a venue name.
func (r *Registry) Resolve(name string) (VenueSpec, error) {
	spec, ok := r.Venues[name]
	if !ok {
		return VenueSpec{}, eris.Errorf("adapter: unknown venue %q", name)
	}
	return spec, nil
}
