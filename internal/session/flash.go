package session

import (
	"encoding/gob"
	"net/http"
)

// Flash kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
)

// Flash is a one-shot toast shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() { gob.Register(Flash{}) }

func Success(msg string) Flash { return Flash{Kind: KindSuccess, Message: msg} }
func Error(msg string) Flash   { return Flash{Kind: KindError, Message: msg} }
func Info(msg string) Flash    { return Flash{Kind: KindInfo, Message: msg} }

// AddFlash queues f.  Must run before the response header is written.
func (s *Store) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	// A tampered or stale cookie yields a fresh session; that is fine here.
	sess, _ := s.flash.Get(r, flashCookie)
	sess.AddFlash(f)
	return sess.Save(r, w)
}

// Flashes drains the queue.
func (s *Store) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess, _ := s.flash.Get(r, flashCookie)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	_ = sess.Save(r, w)
	return out
}
