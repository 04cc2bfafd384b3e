package models

import "slices"

// POUType is the kind of program organization unit.
type POUType string

const (
	POUProgram       POUType = "program"
	POUFunction      POUType = "function"
	POUFunctionBlock POUType = "functionBlock"
)

// Variable is a declared POU variable.
type Variable struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required,plcaddr"`
	Type    string `json:"type" validate:"omitempty,oneof=BOOL INT REAL STRING"`
}

// POUVariables groups declarations by scope.
type POUVariables struct {
	Input  []Variable `json:"input" validate:"dive"`
	Output []Variable `json:"output" validate:"dive"`
	Local  []Variable `json:"local" validate:"dive"`
}

// POU is a named reusable program, function or function block.
type POU struct {
	ID        string       `json:"id"`
	Name      string       `json:"name" validate:"required"`
	Type      POUType      `json:"type" validate:"required,oneof=program function functionBlock"`
	Variables POUVariables `json:"variables"`
	Rungs     []Rung       `json:"rungs"`
}

// Instantiable reports whether the POU can be placed as a component.
// Only function blocks declaring at least one input and one output qualify.
func (p POU) Instantiable() bool {
	return p.Type == POUFunctionBlock &&
		len(p.Variables.Input) > 0 &&
		len(p.Variables.Output) > 0
}

// Clone returns a deep copy.
func (p POU) Clone() POU {
	out := p
	out.Variables = POUVariables{
		Input:  slices.Clone(p.Variables.Input),
		Output: slices.Clone(p.Variables.Output),
		Local:  slices.Clone(p.Variables.Local),
	}
	out.Rungs = cloneRungs(p.Rungs)
	return out
}
