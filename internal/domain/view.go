package domain

// StateView couples the vault snapshot and strategy params captured together
// by a state reader. Views are pure values compared by the oracle.
type StateView struct {
	Vault    *VaultSnapshot
	Strategy *StrategyParams
}

// Clone returns a deep copy.
func (v *StateView) Clone() *StateView {
	return &StateView{Vault: v.Vault.Clone(), Strategy: v.Strategy.Clone()}
}
