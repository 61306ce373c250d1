package auth

import (
	"net/http"

	intauth "github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/metrics"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/view"
)

// Password reset is a two-step transaction:
//
//	password step → code step → success | back-to-password | cancel
//
// Step one stages {email, current, new} in encrypted cookies for an hour and
// never touches the session cookie.  Step two sends the code with the staged
// values; only success clears the cookies.

const (
	formForgot        = "auth/forgot"
	formResetPassword = "auth/reset-password"
	formResetCode     = "auth/reset-code"

	stepPassword = "password"
	stepCode     = "code"

	msgResetFailed   = "We could not start the password reset.  Check your details."
	msgCodeFailed    = "That code did not work.  Please try again."
	msgResetExpired  = "Your reset session expired.  Please start again."
	msgResetDone     = "Password updated.  Please sign in with your new password."
	msgResetCanceled = "Password reset cancelled."
	msgForgotFailed  = "We could not send the reset email.  Please try again."
)

type resetView struct {
	Step  string
	Email string
}

func resetPage(step, email string) view.Page {
	return view.Page{Title: "Reset password", Data: resetView{Step: step, Email: email}}
}

/*──────────────────────────── forgot ───────────────────────────────────────*/

func (c *Component) getForgot(w http.ResponseWriter, r *http.Request) {
	c.d.Views.Render(w, r, c.Name(), "forgot", view.Page{Title: "Forgot password"})
}

func (c *Component) postForgot(w http.ResponseWriter, r *http.Request) {
	page := view.Page{Title: "Forgot password"}
	v, err := form.HandleSubmit(formForgot, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "forgot", page, err)
		return
	}
	email := v.String("email")
	if err := c.d.Backend.ForgotPassword(r.Context(), email); err != nil {
		c.d.Reject(w, r, c.Name(), "forgot", page, respond.Message(err, msgForgotFailed))
		return
	}
	metrics.AuthEventsTotal.WithLabelValues("forgot", "ok").Inc()
	c.d.Views.Render(w, r, c.Name(), "forgot_sent", view.Page{Title: "Check your email", Data: email})
}

/*──────────────────────────── reset ────────────────────────────────────────*/

// getReset resumes at the code step while a transaction is staged.
func (c *Component) getReset(w http.ResponseWriter, r *http.Request) {
	if tx, ok := c.d.Sessions.Reset(r); ok {
		c.d.Views.Render(w, r, c.Name(), "reset", resetPage(stepCode, tx.Email))
		return
	}
	page := resetPage(stepPassword, "")
	if h, ok := intauth.User(r.Context()); ok && h.Email != "" {
		page.Form.Prefill = map[string]string{"email": h.Email}
	}
	c.d.Views.Render(w, r, c.Name(), "reset", page)
}

func (c *Component) postResetPassword(w http.ResponseWriter, r *http.Request) {
	page := resetPage(stepPassword, "")
	v, err := form.HandleSubmit(formResetPassword, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "reset", page, err)
		return
	}

	tx := session.ResetTx{
		Email:           v.String("email"),
		CurrentPassword: v.String("current_password"),
		NewPassword:     v.String("new_password"),
	}
	err = c.d.Backend.SendResetPassword(r.Context(), backend.PasswordChange{
		Email:           tx.Email,
		CurrentPassword: tx.CurrentPassword,
		NewPassword:     tx.NewPassword,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("reset", "failed").Inc()
		c.d.Reject(w, r, c.Name(), "reset", page, respond.Message(err, msgResetFailed))
		return
	}
	if err := c.d.Sessions.StageReset(w, tx); err != nil {
		logger.FromContext(r.Context()).Errorw("stage reset failed", "err", err)
		c.d.Reject(w, r, c.Name(), "reset", page, msgResetFailed)
		return
	}
	metrics.AuthEventsTotal.WithLabelValues("reset", "staged").Inc()
	c.d.Views.Render(w, r, c.Name(), "reset", resetPage(stepCode, tx.Email))
}

func (c *Component) postResetCode(w http.ResponseWriter, r *http.Request) {
	tx, ok := c.d.Sessions.Reset(r)
	if !ok {
		_ = c.d.Sessions.AddFlash(w, r, session.Error(msgResetExpired))
		http.Redirect(w, r, "/reset-password", http.StatusSeeOther)
		return
	}
	page := resetPage(stepCode, tx.Email)

	v, err := form.HandleSubmit(formResetCode, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "reset", page, err)
		return
	}

	err = c.d.Backend.ConfirmResetCode(r.Context(), backend.CodeConfirmation{
		Email:       tx.Email,
		Code:        v.String("code"),
		NewPassword: tx.NewPassword,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("reset_code", "failed").Inc()
		c.d.Reject(w, r, c.Name(), "reset", page, respond.Message(err, msgCodeFailed))
		return
	}

	c.d.Sessions.ClearReset(w)
	metrics.AuthEventsTotal.WithLabelValues("reset_code", "ok").Inc()
	_ = c.d.Sessions.AddFlash(w, r, session.Success(msgResetDone))
	http.Redirect(w, r, c.d.Config.Auth.LoginPath, http.StatusSeeOther)
}

// postResetBack abandons the staged values but keeps the email typed in.
func (c *Component) postResetBack(w http.ResponseWriter, r *http.Request) {
	page := resetPage(stepPassword, "")
	if tx, ok := c.d.Sessions.Reset(r); ok {
		page.Form.Prefill = map[string]string{"email": tx.Email}
	}
	c.d.Sessions.ClearReset(w)
	c.d.Views.Render(w, r, c.Name(), "reset", page)
}

func (c *Component) postResetCancel(w http.ResponseWriter, r *http.Request) {
	c.d.Sessions.ClearReset(w)
	_ = c.d.Sessions.AddFlash(w, r, session.Info(msgResetCanceled))
	http.Redirect(w, r, c.d.Config.Auth.LoginPath, http.StatusSeeOther)
}
