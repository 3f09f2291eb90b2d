// Package model holds the optimization problem under assembly. A Model is
// the abstract structure capability modules declare (sets, parameters,
// variable families, constraint rules); Instantiate binds the structure to
// loaded data and produces the concrete, solver-ready Instance.
package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Inf is the bound used for unbounded variables.
var Inf = math.Inf(1)

// Key joins index elements into a composite set key, e.g. Key("zone_a",
// "tp1") == "zone_a.tp1".
func Key(elems ...string) string {
	return strings.Join(elems, ".")
}

// VarOpts configures a variable family declared over an index set. A
// *Param field, when set, names an indexed parameter (over the same set)
// consulted per element; otherwise the static value applies.
type VarOpts struct {
	Lower      float64
	Upper      float64
	LowerParam string
	UpperParam string
	CostParam  string
	Fixable    bool
}

type paramDecl struct {
	name     string
	indexSet string // empty for scalars
	hasDef   bool
	def      float64
	values   map[string]float64
}

type familyDecl struct {
	name     string
	indexSet string
	opts     VarOpts
}

type rule struct {
	name  string
	build func(*Instance) error
}

// Model is the abstract problem structure for one (subproblem, stage)
// build. It is populated by module hooks in module order and is not safe
// for concurrent use; each build owns its own Model.
type Model struct {
	name string

	setOrder []string
	sets     map[string][]string

	paramOrder []string
	params     map[string]*paramDecl

	lookups map[string]map[string]string

	famOrder []string
	families map[string]*familyDecl

	rules []rule
}

// New creates an empty model named for its build unit.
func New(name string) *Model {
	return &Model{
		name:     name,
		sets:     make(map[string][]string),
		params:   make(map[string]*paramDecl),
		lookups:  make(map[string]map[string]string),
		families: make(map[string]*familyDecl),
	}
}

// Name returns the build unit name the model was created for.
func (m *Model) Name() string { return m.name }

// AddSet declares an index set. Redeclaring an existing set is an error:
// two modules claiming the same set name is a wiring bug.
func (m *Model) AddSet(name string) error {
	if _, exists := m.sets[name]; exists {
		return fmt.Errorf("set %q already declared", name)
	}
	m.setOrder = append(m.setOrder, name)
	m.sets[name] = nil
	return nil
}

// AddSetMembers appends elements to a declared set, preserving insertion
// order and skipping duplicates.
func (m *Model) AddSetMembers(name string, elems ...string) error {
	members, ok := m.sets[name]
	if !ok {
		return fmt.Errorf("set %q not declared", name)
	}
	seen := make(map[string]struct{}, len(members))
	for _, e := range members {
		seen[e] = struct{}{}
	}
	for _, e := range elems {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		members = append(members, e)
	}
	m.sets[name] = members
	return nil
}

// Set returns the members of a set in insertion order. Unknown sets read
// as empty.
func (m *Model) Set(name string) []string {
	return m.sets[name]
}

// AddParam declares a parameter indexed by a set. Every member of the set
// must be assigned a value before Instantiate, unless a default is given
// via AddParamDefault.
func (m *Model) AddParam(name, indexSet string) error {
	return m.addParam(name, indexSet, false, 0)
}

// AddScalarParam declares an unindexed parameter.
func (m *Model) AddScalarParam(name string) error {
	return m.addParam(name, "", false, 0)
}

// AddParamDefault declares an indexed parameter with a default used for
// members that are never assigned.
func (m *Model) AddParamDefault(name, indexSet string, def float64) error {
	return m.addParam(name, indexSet, true, def)
}

// AddScalarParamDefault declares a scalar parameter with a default.
func (m *Model) AddScalarParamDefault(name string, def float64) error {
	return m.addParam(name, "", true, def)
}

func (m *Model) addParam(name, indexSet string, hasDef bool, def float64) error {
	if _, exists := m.params[name]; exists {
		return fmt.Errorf("parameter %q already declared", name)
	}
	if indexSet != "" {
		if _, ok := m.sets[indexSet]; !ok {
			return fmt.Errorf("parameter %q: index set %q not declared", name, indexSet)
		}
	}
	m.paramOrder = append(m.paramOrder, name)
	m.params[name] = &paramDecl{
		name:     name,
		indexSet: indexSet,
		hasDef:   hasDef,
		def:      def,
		values:   make(map[string]float64),
	}
	return nil
}

// SetParam assigns the value of an indexed parameter for one key.
func (m *Model) SetParam(name, key string, v float64) error {
	p, ok := m.params[name]
	if !ok {
		return fmt.Errorf("parameter %q not declared", name)
	}
	if p.indexSet == "" {
		return fmt.Errorf("parameter %q is scalar, use SetScalar", name)
	}
	p.values[key] = v
	return nil
}

// SetScalar assigns the value of a scalar parameter.
func (m *Model) SetScalar(name string, v float64) error {
	p, ok := m.params[name]
	if !ok {
		return fmt.Errorf("parameter %q not declared", name)
	}
	if p.indexSet != "" {
		return fmt.Errorf("parameter %q is indexed by %q, use SetParam", name, p.indexSet)
	}
	p.values[""] = v
	return nil
}

// Param returns the value of an indexed parameter for a key, falling back
// to the declared default.
func (m *Model) Param(name, key string) (float64, bool) {
	p, ok := m.params[name]
	if !ok {
		return 0, false
	}
	if v, ok := p.values[key]; ok {
		return v, true
	}
	if p.hasDef {
		return p.def, true
	}
	return 0, false
}

// Scalar returns the value of a scalar parameter.
func (m *Model) Scalar(name string) (float64, bool) {
	return m.Param(name, "")
}

// AddLookup declares a string-valued mapping, e.g. project -> load zone.
// Lookups carry structural relations that numeric parameters cannot.
func (m *Model) AddLookup(name string) error {
	if _, exists := m.lookups[name]; exists {
		return fmt.Errorf("lookup %q already declared", name)
	}
	m.lookups[name] = make(map[string]string)
	return nil
}

// SetLookup assigns one entry of a declared lookup.
func (m *Model) SetLookup(name, key, value string) error {
	lk, ok := m.lookups[name]
	if !ok {
		return fmt.Errorf("lookup %q not declared", name)
	}
	lk[key] = value
	return nil
}

// Lookup resolves one entry of a lookup.
func (m *Model) Lookup(name, key string) (string, bool) {
	v, ok := m.lookups[name][key]
	return v, ok
}

// AddVariables declares a family of decision variables, one per member of
// the index set, expanded at instantiation.
func (m *Model) AddVariables(family, indexSet string, opts VarOpts) error {
	if _, exists := m.families[family]; exists {
		return fmt.Errorf("variable family %q already declared", family)
	}
	if _, ok := m.sets[indexSet]; !ok {
		return fmt.Errorf("variable family %q: index set %q not declared", family, indexSet)
	}
	m.famOrder = append(m.famOrder, family)
	m.families[family] = &familyDecl{name: family, indexSet: indexSet, opts: opts}
	return nil
}

// HasFamily reports whether a variable family has been declared.
func (m *Model) HasFamily(family string) bool {
	_, ok := m.families[family]
	return ok
}

// AddConstraintRule registers a named rule invoked during instantiation,
// after all data is bound, to emit concrete constraints. Rules run in
// registration order, which follows module order.
func (m *Model) AddConstraintRule(name string, build func(*Instance) error) {
	m.rules = append(m.rules, rule{name: name, build: build})
}

// BindingError reports declared structure with no corresponding loaded
// value. It is fatal to the (subproblem, stage) build that raised it.
type BindingError struct {
	Model   string
	Missing []string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("model %s: missing data for %s", e.Model, strings.Join(e.Missing, ", "))
}

// Instantiate binds the declared structure to loaded data. It verifies
// every parameter is fully populated, expands variable families into
// concrete variables, and runs the constraint rules in order.
func (m *Model) Instantiate() (*Instance, error) {
	var missing []string
	for _, name := range m.paramOrder {
		p := m.params[name]
		if p.hasDef {
			continue
		}
		if p.indexSet == "" {
			if _, ok := p.values[""]; !ok {
				missing = append(missing, fmt.Sprintf("parameter %s", name))
			}
			continue
		}
		for _, elem := range m.sets[p.indexSet] {
			if _, ok := p.values[elem]; !ok {
				missing = append(missing, fmt.Sprintf("parameter %s[%s]", name, elem))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &BindingError{Model: m.name, Missing: missing}
	}

	inst := &Instance{
		Name:  m.name,
		model: m,
		vars:  make(map[string]*Variable),
	}
	for _, famName := range m.famOrder {
		fam := m.families[famName]
		for _, elem := range m.sets[fam.indexSet] {
			v := &Variable{
				Name:    fmt.Sprintf("%s[%s]", fam.name, elem),
				Family:  fam.name,
				Element: elem,
				Lower:   fam.opts.Lower,
				Upper:   fam.opts.Upper,
				Fixable: fam.opts.Fixable,
			}
			if fam.opts.UpperParam == "" && fam.opts.Upper == 0 {
				v.Upper = Inf
			}
			if fam.opts.LowerParam != "" {
				if b, ok := m.Param(fam.opts.LowerParam, elem); ok {
					v.Lower = b
				}
			}
			if fam.opts.UpperParam != "" {
				if b, ok := m.Param(fam.opts.UpperParam, elem); ok {
					v.Upper = b
				}
			}
			if fam.opts.CostParam != "" {
				if c, ok := m.Param(fam.opts.CostParam, elem); ok {
					v.Cost = c
				}
			}
			inst.vars[v.Name] = v
			inst.varOrder = append(inst.varOrder, v.Name)
		}
	}

	for _, r := range m.rules {
		if err := r.build(inst); err != nil {
			return nil, fmt.Errorf("constraint rule %q: %w", r.name, err)
		}
	}
	return inst, nil
}
