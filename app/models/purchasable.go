package models

import "fmt"

// PurchasableKind discriminates what an access grant or purchase points at.
type PurchasableKind string

const (
	PurchasableSpace      PurchasableKind = "space"
	PurchasableExperience PurchasableKind = "experience"
)

// PurchasableRef is a typed reference to a sellable target. Grants and
// purchases store the kind + id pair; code switches exhaustively on Kind
// instead of string-matching a free-form type tag.
type PurchasableRef struct {
	Kind PurchasableKind
	ID   uint
}

// SpaceRef builds a reference to a space.
func SpaceRef(id uint) PurchasableRef {
	return PurchasableRef{Kind: PurchasableSpace, ID: id}
}

// ExperienceRef builds a reference to an experience.
func ExperienceRef(id uint) PurchasableRef {
	return PurchasableRef{Kind: PurchasableExperience, ID: id}
}

// Valid reports whether the reference carries a known kind and a non-zero id.
func (r PurchasableRef) Valid() bool {
	switch r.Kind {
	case PurchasableSpace, PurchasableExperience:
		return r.ID != 0
	default:
		return false
	}
}

func (r PurchasableRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
