package session

import "net/http"

// PendingPayment remembers a payment that needs provider-side action.
type PendingPayment struct {
	PlanID          string
	SubscriptionID  string
	PaymentIntentID string
	ClientSecret    string
}

func (s *Store) StagePending(w http.ResponseWriter, p PendingPayment) error {
	return s.setEncoded(w, PendingCookie, p, ResetTTL)
}

func (s *Store) Pending(r *http.Request) (PendingPayment, bool) {
	var p PendingPayment
	ok := s.getEncoded(r, PendingCookie, &p)
	return p, ok && p.ClientSecret != ""
}

func (s *Store) ClearPending(w http.ResponseWriter) {
	http.SetCookie(w, s.expired(PendingCookie))
}
