package domain

type transitionKey struct {
	from RentalStatus
	to   RentalStatus
}

type partySet []Party

func (ps partySet) allows(p Party) bool {
	for _, allowed := range ps {
		if allowed == p {
			return true
		}
	}
	return false
}

// transitions is the complete lifecycle table. Creation is not a transition and
// lives in Intent.InitialStatus.
var transitions = map[transitionKey]partySet{
	{RentalStatusDraft, RentalStatusCancelled}:          {PartyRenter},
	{RentalStatusDraft, RentalStatusInReview}:           {PartyRenter},
	{RentalStatusPendingPayment, RentalStatusInReview}:  {PartyRenter},
	{RentalStatusPendingPayment, RentalStatusCancelled}: {PartyRenter, PartyOwner},
	{RentalStatusInReview, RentalStatusConfirmed}:       {PartyOwner},
	{RentalStatusInReview, RentalStatusCancelled}:       {PartyRenter, PartyOwner},
	{RentalStatusConfirmed, RentalStatusInProgress}:     {PartyOwner},
	{RentalStatusConfirmed, RentalStatusCancelled}:      {PartyRenter, PartyOwner},
	{RentalStatusInProgress, RentalStatusCompleted}:     {PartyOwner},
	{RentalStatusInProgress, RentalStatusCancelled}:     {PartyOwner},
}

// CanTransition reports whether from -> to exists in the lifecycle table.
func CanTransition(from, to RentalStatus) bool {
	_, ok := transitions[transitionKey{from, to}]
	return ok
}

// ValidateTransition checks the table first and the acting party second, so a
// transition that can never happen is reported as illegal regardless of who asked.
func ValidateTransition(from, to RentalStatus, party Party) error {
	parties, ok := transitions[transitionKey{from, to}]
	if !ok {
		return &IllegalTransitionError{From: from, To: to}
	}
	if !parties.allows(party) {
		return &OwnershipError{Reason: party.String() + " may not move rental from " + string(from) + " to " + string(to)}
	}
	return nil
}

// RequiresRefund reports whether cancelling from the given status must trigger a
// refund by the payment tooling.
func RequiresRefund(from RentalStatus) bool {
	switch from {
	case RentalStatusInReview, RentalStatusConfirmed, RentalStatusInProgress:
		return true
	default:
		return false
	}
}
