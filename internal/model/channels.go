package model

// Channel entry types. These are the shapes modules append to the dynamic
// component store; the producing module never knows which modules, if any,
// will read them. The Terms closures are evaluated during instantiation,
// after all data is bound, so they may consult parameters and lookups.

// CostComponent announces that a variable family contributes its
// cost-weighted value to the system objective, under a reporting label.
type CostComponent struct {
	Component string
	Family    string
}

// BalanceContribution announces linear terms that enter the power balance
// of a (zone, timepoint). Sign is +1 for supply and -1 for withdrawals.
type BalanceContribution struct {
	Component string
	Terms     func(in *Instance, zone, timepoint string) []Term
}

// EmissionSource announces linear terms that enter the system-wide
// emissions accounting.
type EmissionSource struct {
	Component string
	Terms     func(in *Instance) []Term
}

// ReserveContribution announces linear terms that count toward a reserve
// requirement of a (zone, timepoint).
type ReserveContribution struct {
	Component string
	Terms     func(in *Instance, zone, timepoint string) []Term
}
