// Package directory holds the company's service directory: the ordered
// list of {extension, name} pairs the intent classifier matches against and
// the dialog engine transfers calls to.
package directory

import (
	"fmt"
	"strings"
)

// Service is one internal extension the receptionist can transfer to.
type Service struct {
	Extension string
	Name      string
}

// Parse decodes the SERVICES environment value: comma-separated
// "ext:name" pairs, e.g. "101:Ventes,102:Support,103:Comptabilité".
// Service names must be unique (case-insensitive); extensions need not be.
func Parse(raw string) ([]Service, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var services []Service
	seen := make(map[string]struct{})

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		ext, name, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid SERVICES entry %q: expected ext:name", item)
		}
		ext = strings.TrimSpace(ext)
		name = strings.TrimSpace(name)
		if ext == "" || name == "" {
			return nil, fmt.Errorf("invalid SERVICES entry %q: empty extension or name", item)
		}

		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate service name %q in SERVICES", name)
		}
		seen[key] = struct{}{}

		services = append(services, Service{Extension: ext, Name: name})
	}

	return services, nil
}
