package model

import "strings"

// ServiceOption is a priced variant of a service (e.g. per carrier).
type ServiceOption struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Service is a catalog entry.  Admins may change every field; regular
// users only read it.
type Service struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Options     []ServiceOption `json:"options"`
}

// Option looks an option up by name.
func (s Service) Option(name string) (ServiceOption, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o, true
		}
	}
	return ServiceOption{}, false
}

// TargetLabel names the identifier a customer must supply when ordering
// this service.  It is derived from the title keywords.
func (s Service) TargetLabel() string {
	t := strings.ToUpper(s.Title)
	switch {
	case strings.Contains(t, "NID"):
		return "NID number"
	case strings.Contains(t, "IMEI"):
		return "IMEI number"
	default:
		return "number"
	}
}
