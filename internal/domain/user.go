package domain

type UserRole string

const (
	UserRoleRenter UserRole = "RENTER"
	UserRoleOwner  UserRole = "OWNER"
)

// Actor is the authenticated caller of a booking operation. It is resolved by the
// transport layer from the access token and passed explicitly into every call.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Party is the relationship of an actor to one rental transaction.
type Party int

const (
	PartyNone Party = iota
	PartyRenter
	PartyOwner
)

func (p Party) String() string {
	switch p {
	case PartyRenter:
		return "renter"
	case PartyOwner:
		return "owner"
	default:
		return "none"
	}
}

// PartyOf resolves how the actor relates to the rental.
func PartyOf(actor Actor, rt *RentalTransaction) Party {
	switch actor.ID {
	case "":
		return PartyNone
	case rt.RenterID:
		return PartyRenter
	case rt.OwnerID:
		return PartyOwner
	default:
		return PartyNone
	}
}
