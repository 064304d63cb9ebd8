package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type DeliveryAddress struct {
	Street        string `json:"street"`
	Area          string `json:"area"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	Landmark      string `json:"landmark,omitempty"`
	ContactNumber string `json:"contactNumber"`
}

func (a DeliveryAddress) IsZero() bool {
	return a == DeliveryAddress{}
}

// MissingFields lists the required fields that are blank.
func (a DeliveryAddress) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"street", a.Street},
		{"area", a.Area},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"contactNumber", a.ContactNumber},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Trimmed returns the address with surrounding whitespace removed from every field.
func (a DeliveryAddress) Trimmed() DeliveryAddress {
	return DeliveryAddress{
		Street:        strings.TrimSpace(a.Street),
		Area:          strings.TrimSpace(a.Area),
		City:          strings.TrimSpace(a.City),
		PostalCode:    strings.TrimSpace(a.PostalCode),
		Landmark:      strings.TrimSpace(a.Landmark),
		ContactNumber: strings.TrimSpace(a.ContactNumber),
	}
}

func (a DeliveryAddress) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *DeliveryAddress) Scan(src any) error {
	return scanJSON(src, a)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("entity: cannot scan %T into %T", src, dst)
	}
}
