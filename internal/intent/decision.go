// Package intent decides whether a message continues the active persona,
// switches to another one or asks for a new one.
package intent

import (
	"persona-chatter/internal/persona"
)

// Decision is one of Continue, SwitchTo or CreateNew.
type Decision interface {
	isDecision()
}

type Continue struct{}

type SwitchTo struct {
	Name string
}

type CreateNew struct {
	Name        string
	Description string
}

func (Continue) isDecision()  {}
func (SwitchTo) isDecision()  {}
func (CreateNew) isDecision() {}

// Normalize lowercases names and reconciles a decision with the known set:
// switching to an unknown persona continues, creating a known one switches.
func Normalize(d Decision, known []string) Decision {
	set := make(map[string]bool, len(known))
	for _, n := range known {
		set[persona.Normalize(n)] = true
	}
	switch v := d.(type) {
	case SwitchTo:
		name := persona.Normalize(v.Name)
		if !set[name] {
			return Continue{}
		}
		return SwitchTo{Name: name}
	case CreateNew:
		name := persona.Normalize(v.Name)
		if set[name] {
			return SwitchTo{Name: name}
		}
		if !persona.ValidName(name) {
			return Continue{}
		}
		return CreateNew{Name: name, Description: v.Description}
	default:
		return Continue{}
	}
}
