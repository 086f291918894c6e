package grants

// EffectKind names a follow-up action produced by a ledger mutation.
type EffectKind string

const (
	// EffectInvalidateRoles drops the cached role set for a (team, user)
	// pair after a membership-affecting mutation.
	EffectInvalidateRoles EffectKind = "invalidate_roles"

	// EffectMembershipSynced records that a membership was created or
	// upgraded inside the mutation's transaction.
	EffectMembershipSynced EffectKind = "membership_synced"
)

// Effect is a follow-up produced by a ledger mutation. Mutations collect
// effects instead of firing implicit hooks; the service executes them in
// order after the transaction commits, which keeps side effects visible
// and testable.
type Effect struct {
	Kind   EffectKind
	TeamID uint
	UserID uint
}

func invalidateRoles(teamID, userID uint) Effect {
	return Effect{Kind: EffectInvalidateRoles, TeamID: teamID, UserID: userID}
}

func membershipSynced(teamID, userID uint) Effect {
	return Effect{Kind: EffectMembershipSynced, TeamID: teamID, UserID: userID}
}
