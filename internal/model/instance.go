package model

import "fmt"

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	Eq
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Eq:
		return "=="
	case GreaterEq:
		return ">="
	}
	return "?"
}

// Variable is one concrete decision variable of an instance. A fixed
// variable no longer participates as a free decision: the solver treats it
// as the constant FixedValue.
type Variable struct {
	Name    string
	Family  string
	Element string
	Lower   float64
	Upper   float64
	Cost    float64
	Fixable bool

	Fixed      bool
	FixedValue float64
}

// Term is one linear term of a constraint.
type Term struct {
	Var  string
	Coef float64
}

// Constraint is a concrete linear constraint: sum(terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Instance is the concrete, solver-ready problem built for one
// (subproblem, stage). It is owned exclusively by that build.
type Instance struct {
	Name  string
	model *Model

	vars     map[string]*Variable
	varOrder []string
	cons     []*Constraint
}

// Var returns a variable by its full name, e.g. "Build[nuclear]".
func (in *Instance) Var(name string) (*Variable, bool) {
	v, ok := in.vars[name]
	return v, ok
}

// Variables returns all variables in declaration order.
func (in *Instance) Variables() []*Variable {
	out := make([]*Variable, 0, len(in.varOrder))
	for _, name := range in.varOrder {
		out = append(out, in.vars[name])
	}
	return out
}

// FamilyVariables returns the variables of one family in declaration order.
func (in *Instance) FamilyVariables(family string) []*Variable {
	var out []*Variable
	for _, name := range in.varOrder {
		if v := in.vars[name]; v.Family == family {
			out = append(out, v)
		}
	}
	return out
}

// Constraints returns all constraints in creation order.
func (in *Instance) Constraints() []*Constraint {
	return in.cons
}

// AddConstraint appends a concrete constraint. Every term must reference
// an existing variable.
func (in *Instance) AddConstraint(name string, terms []Term, sense Sense, rhs float64) error {
	for _, t := range terms {
		if _, ok := in.vars[t.Var]; !ok {
			return fmt.Errorf("constraint %q references unknown variable %q", name, t.Var)
		}
	}
	in.cons = append(in.cons, &Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
	return nil
}

// Fix replaces a variable's role with a constant. Only variables whose
// family was declared fixable may be fixed.
func (in *Instance) Fix(name string, value float64) error {
	v, ok := in.vars[name]
	if !ok {
		return fmt.Errorf("cannot fix unknown variable %q", name)
	}
	if !v.Fixable {
		return fmt.Errorf("variable %q was not declared fixable", name)
	}
	v.Fixed = true
	v.FixedValue = value
	return nil
}

// Set exposes the underlying model's sets to constraint rules.
func (in *Instance) Set(name string) []string {
	return in.model.Set(name)
}

// Param exposes the underlying model's indexed parameters.
func (in *Instance) Param(name, key string) (float64, bool) {
	return in.model.Param(name, key)
}

// Scalar exposes the underlying model's scalar parameters.
func (in *Instance) Scalar(name string) (float64, bool) {
	return in.model.Scalar(name)
}

// Lookup exposes the underlying model's string lookups.
func (in *Instance) Lookup(name, key string) (string, bool) {
	return in.model.Lookup(name, key)
}

// HasFamily reports whether the underlying model declared a family.
func (in *Instance) HasFamily(family string) bool {
	return in.model.HasFamily(family)
}
