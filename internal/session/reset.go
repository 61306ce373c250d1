package session

import "net/http"

// ResetTx is the staged state of a two-step password reset.
type ResetTx struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

type resetSecret struct {
	Current string
	New     string
}

// StageReset persists tx for ResetTTL.
func (s *Store) StageReset(w http.ResponseWriter, tx ResetTx) error {
	if err := s.setEncoded(w, ResetEmailCookie, tx.Email, ResetTTL); err != nil {
		return err
	}
	return s.setEncoded(w, ResetPasswordCookie, resetSecret{Current: tx.CurrentPassword, New: tx.NewPassword}, ResetTTL)
}

// Reset returns the staged transaction.  ok is false unless both cookies are
// present and intact.
func (s *Store) Reset(r *http.Request) (tx ResetTx, ok bool) {
	var sec resetSecret
	if !s.getEncoded(r, ResetEmailCookie, &tx.Email) || !s.getEncoded(r, ResetPasswordCookie, &sec) {
		return ResetTx{}, false
	}
	tx.CurrentPassword, tx.NewPassword = sec.Current, sec.New
	return tx, tx.Email != ""
}

// ClearReset removes both reset cookies.
func (s *Store) ClearReset(w http.ResponseWriter) {
	http.SetCookie(w, s.expired(ResetEmailCookie))
	http.SetCookie(w, s.expired(ResetPasswordCookie))
}
