// Package validation checks POU declarations and lints whole projects.
//
// Struct-level rules live in validate tags on the model types and are run by
// go-playground/validator. Rules that need more than one field (duplicate
// names, function block arity, overlapping components) are checked here.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/plc-ladder/backend/internal/grid"
	"github.com/plc-ladder/backend/internal/models"
)

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// CompareOperators lists the operators a COMPARE component accepts.
var CompareOperators = []string{"==", "!=", ">", "<", ">=", "<="}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("plcaddr", validatePLCAddress)
}

// validatePLCAddress accepts identifiers made of letters, digits and
// underscores.
func validatePLCAddress(fl validator.FieldLevel) bool {
	return IsValidAddress(fl.Field().String())
}

// IsValidAddress reports whether s is a well-formed I/O address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidatePOU returns every problem found in the POU declaration. An empty
// result means the POU is valid.
func ValidatePOU(p models.POU) []string {
	var errs []string

	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fieldMessage(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}
	if p.Name != "" && strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "POU name is required")
	}

	errs = append(errs, duplicates(p.Variables.Input, "Input")...)
	errs = append(errs, duplicates(p.Variables.Output, "Output")...)
	errs = append(errs, duplicates(p.Variables.Local, "Local")...)

	if p.Type == models.POUFunctionBlock {
		if len(p.Variables.Input) == 0 {
			errs = append(errs, "Function blocks must have at least one input variable")
		}
		if len(p.Variables.Output) == 0 {
			errs = append(errs, "Function blocks must have at least one output variable")
		}
	}
	return errs
}

func duplicates(vars []models.Variable, scope string) []string {
	var errs []string
	names := make(map[string]bool, len(vars))
	addresses := make(map[string]bool, len(vars))
	for _, v := range vars {
		if v.Name != "" && names[v.Name] {
			errs = append(errs, fmt.Sprintf("Duplicate %s variable name: %s", scope, v.Name))
		}
		names[v.Name] = true
		if v.Address != "" && addresses[v.Address] {
			errs = append(errs, fmt.Sprintf("Duplicate %s variable address: %s", scope, v.Address))
		}
		addresses[v.Address] = true
	}
	return errs
}

// fieldMessage turns a validator error into a user-facing message.
func fieldMessage(fe validator.FieldError) string {
	// Namespace looks like POU.Variables.Input[0].Address
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) >= 4 && parts[1] == "Variables" {
		scope := parts[2]
		if i := strings.IndexByte(scope, '['); i >= 0 {
			scope = scope[:i]
		}
		switch {
		case fe.Tag() == "required":
			return fmt.Sprintf("%s variable %s is required", scope, strings.ToLower(fe.Field()))
		case fe.Tag() == "plcaddr":
			return fmt.Sprintf("Invalid %s variable address format: %v", scope, fe.Value())
		case fe.Field() == "Type":
			return fmt.Sprintf("Invalid %s variable type: %v", scope, fe.Value())
		}
		return fmt.Sprintf("Invalid %s variable %s", scope, strings.ToLower(fe.Field()))
	}

	switch fe.Field() {
	case "Name":
		return "POU name is required"
	case "Type":
		return "Invalid POU type"
	}
	return fmt.Sprintf("Invalid %s", fe.Field())
}

// Severity grades a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one lint finding. Rung and Component are zero-based, -1 when the
// issue is not tied to one.
type Issue struct {
	Severity  Severity `json:"severity"`
	Rung      int      `json:"rung"`
	Component int      `json:"component"`
	Message   string   `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Rung >= 0 && i.Component >= 0:
		return fmt.Sprintf("Rung %d, Component %d: %s", i.Rung+1, i.Component+1, i.Message)
	case i.Rung >= 0:
		return fmt.Sprintf("Rung %d: %s", i.Rung+1, i.Message)
	}
	return i.Message
}

// Report is the result of linting a project.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) add(sev Severity, rung, comp int, format string, args ...any) {
	issue := Issue{Severity: sev, Rung: rung, Component: comp, Message: fmt.Sprintf(format, args...)}
	if sev == SeverityError {
		r.Errors = append(r.Errors, issue)
	} else {
		r.Warnings = append(r.Warnings, issue)
	}
}

// ValidateProject lints a project. Errors mark structural or parameter
// problems; warnings mark likely mistakes that still load and export.
func ValidateProject(p *models.Project) Report {
	r := Report{Errors: []Issue{}, Warnings: []Issue{}}
	if p == nil {
		r.add(SeverityError, -1, -1, "Project is missing")
		return r
	}

	if strings.TrimSpace(p.Name) == "" {
		r.add(SeverityError, -1, -1, "Project name is required")
	}
	if len(p.Rungs) == 0 {
		r.add(SeverityError, -1, -1, "Project must have at least one rung")
	}

	for ri, rung := range p.Rungs {
		lintRung(&r, ri, rung)
	}

	for i, l := range p.VerticalLinks {
		if l.FromRung < 0 || l.ToRung >= len(p.Rungs) || l.FromRung > l.ToRung {
			r.add(SeverityError, -1, -1, "Vertical link %d joins invalid rungs %d and %d", i+1, l.FromRung+1, l.ToRung+1)
		}
		if l.FromPosition < grid.MinColumn || l.ToPosition < grid.MinColumn {
			r.add(SeverityError, -1, -1, "Vertical link %d has an invalid column", i+1)
		}
	}

	for _, pou := range p.POUs {
		for _, msg := range ValidatePOU(pou) {
			r.add(SeverityError, -1, -1, "POU %s: %s", pou.Name, msg)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func lintRung(r *Report, ri int, rung models.Rung) {
	if len(rung.Components) == 0 {
		r.add(SeverityWarning, ri, -1, "Rung is empty")
	}

	for ci, c := range rung.Components {
		if ci > 0 && c.Position < rung.Components[ci-1].Position {
			r.add(SeverityError, ri, ci, "Components are not ordered by position")
		}
		if ci > 0 && !grid.IsPositionFree(c.Position, c.Span(), rung.Components[:ci], "") {
			r.add(SeverityError, ri, ci, "Component overlaps another component at column %d", c.Position)
		}
		if c.Position >= grid.MinColumn && !grid.ValidSpan(c.Position, c.Span()) {
			r.add(SeverityError, ri, ci, "Component span %d..%d is outside the grid", c.Position, c.End())
		}
		for _, msg := range lintComponent(c) {
			r.add(SeverityError, ri, ci, "%s", msg)
		}
	}

	lintGaps(r, ri, rung.Components)

	for _, s := range rung.Segments {
		for _, c := range rung.Components {
			if c.Covers(s.Column) {
				r.add(SeverityWarning, ri, -1, "Segment at (%d, %d) shares a column with a component", s.Column, s.Row)
				break
			}
		}
	}
}

// lintGaps reports each run of empty columns left of the last component as
// one warning. Work is proportional to the component count, not the columns.
func lintGaps(r *Report, ri int, components []models.Component) {
	spans := make([]models.Component, len(components))
	copy(spans, components)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Position < spans[j].Position })

	covered := grid.MinColumn - 1
	for _, c := range spans {
		if c.Position > covered+1 {
			from, to := covered+1, c.Position-1
			if from == to {
				r.add(SeverityWarning, ri, -1, "Gap at position %d", from)
			} else {
				r.add(SeverityWarning, ri, -1, "Gap at positions %d-%d", from, to)
			}
		}
		if end := c.End(); end > covered {
			covered = end
		}
	}
}

func lintComponent(c models.Component) []string {
	var errs []string
	if c.Type == "" {
		errs = append(errs, "Component type is required")
	}
	if c.Position < grid.MinColumn {
		errs = append(errs, "Invalid component position")
	}
	if c.Variables == nil {
		return errs
	}

	switch c.Type {
	case models.TypeTimer, models.TypeCounterUp, models.TypeCounterDown:
		if v, ok := models.ToFloat(c.Variables["preset"]); !ok || v < 0 {
			errs = append(errs, "Preset must be a non-negative number")
		}
	case models.TypeCompare:
		_, ok1 := models.ToFloat(c.Variables["value1"])
		_, ok2 := models.ToFloat(c.Variables["value2"])
		if !ok1 || !ok2 {
			errs = append(errs, "Compare values must be numbers")
		}
		op, _ := c.Variables["operator"].(string)
		if !validOperator(op) {
			errs = append(errs, "Invalid operator for comparison")
		}
	}

	if addr := c.StringVar("address"); addr != "" {
		if err := validate.Var(addr, "plcaddr"); err != nil {
			errs = append(errs, "Invalid address format")
		}
	}
	return errs
}

func validOperator(op string) bool {
	for _, o := range CompareOperators {
		if o == op {
			return true
		}
	}
	return false
}
