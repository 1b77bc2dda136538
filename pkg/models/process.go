// Package models defines the workflow graph model: processes, forward and compensation graphs.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Process identifies an orchestrated unit of work by service and function.
// It is a comparable value and is used directly as a map key. The function
// may not contain a dot so the "service.function" form stays reversible.
type Process struct {
	Service  string `json:"service"  validate:"required"            yaml:"service"`
	Function string `json:"function" validate:"required,excludes=." yaml:"function"`
}

func NewProcess(service, function string) Process {
	return Process{Service: service, Function: function}
}

// ParseProcess parses the "service.function" form. The function is everything
// after the last dot so service names may contain dots.
func ParseProcess(s string) (Process, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return Process{}, fmt.Errorf("%w: %q", ErrInvalidProcess, s)
	}

	return Process{Service: s[:idx], Function: s[idx+1:]}, nil
}

func (p Process) String() string {
	return p.Service + "." + p.Function
}

// Validate reports whether p can be written in the "service.function" form
// and parsed back to the same value.
func (p Process) Validate() error {
	if p.Service == "" || p.Function == "" || strings.Contains(p.Function, ".") {
		return fmt.Errorf("%w: %+v", ErrInvalidProcess, p)
	}

	return nil
}

// MarshalText is used when a Process is a JSON object key.
func (p Process) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return []byte(p.String()), nil
}

func (p *Process) UnmarshalText(text []byte) error {
	parsed, err := ParseProcess(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

type processJSON struct {
	Service  string `json:"service"`
	Function string `json:"function"`
}

// MarshalJSON keeps the object form for values even though MarshalText exists.
func (p Process) MarshalJSON() ([]byte, error) {
	return json.Marshal(processJSON(p))
}

// UnmarshalJSON accepts both {"service":..,"function":..} and "service.function".
func (p *Process) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		return p.UnmarshalText([]byte(s))
	}

	var raw processJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Process(raw)

	return nil
}
