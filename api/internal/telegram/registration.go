package telegram

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/samber/lo"

	"medscan-bot/api/internal/i18n"
	"medscan-bot/api/internal/store"
)

// registrationTimeout is how long a user may idle between registration
// steps before the session is cancelled.
const registrationTimeout = 300 * time.Second

var nameRe = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿА-Яа-яЁёҐґЇїІіЄє' -]+$`)

// session tracks one user's in-flight registration. Each session owns
// its timer; starting a new step stops the previous one.
type session struct {
	timer *time.Timer
}

type sessionManager struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessionManager() *sessionManager {
	return &sessionManager{m: make(map[int64]*session)}
}

// arm (re)starts the expiry timer for userID. The expire callback runs
// on the timer's goroutine.
func (sm *sessionManager) arm(userID int64, d time.Duration, expire func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.m[userID]; ok {
		s.timer.Stop()
	}
	sm.m[userID] = &session{timer: time.AfterFunc(d, expire)}
}

// disarm stops and removes userID's timer if one is pending.
func (sm *sessionManager) disarm(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.m[userID]; ok {
		s.timer.Stop()
		delete(sm.m, userID)
	}
}

func (r *Router) startRegistration(ctx context.Context, chatID, userID int64) {
	registered, err := r.Users.Registered(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.register.check", "user_id", userID, "error", err)
		r.sendKey(ctx, chatID, userID, "error_generic", nil)
		return
	}
	lang := r.lang(ctx, userID)
	if registered {
		r.sendText(chatID, i18n.T(lang, "already_register"), mainMenuKeyboard(lang))
		return
	}
	if err := r.Users.SetState(ctx, userID, store.StateAwaitName); err != nil {
		r.Log.Error("telegram.register.state", "user_id", userID, "error", err)
		return
	}
	r.armRegistrationTimer(chatID, userID)
	r.sendText(chatID, i18n.T(lang, "ask_name"), removeKeyboard())
}

func (r *Router) processName(ctx context.Context, chatID, userID int64, text string) {
	lang := r.lang(ctx, userID)
	name := strings.TrimSpace(text)
	if name == "" || !nameRe.MatchString(name) {
		r.sendText(chatID, i18n.T(lang, "invalid_name"), nil)
		return
	}
	if err := r.Users.SetName(ctx, userID, name); err != nil {
		r.Log.Error("telegram.register.name", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	if err := r.Users.SetState(ctx, userID, store.StateAwaitPhone); err != nil {
		r.Log.Error("telegram.register.state", "user_id", userID, "error", err)
		return
	}
	r.armRegistrationTimer(chatID, userID)
	r.sendText(chatID, i18n.T(lang, "ask_phone"), nil)
}

func (r *Router) processPhone(ctx context.Context, chatID, userID int64, text string) {
	lang := r.lang(ctx, userID)
	num, err := phonenumbers.Parse(strings.TrimSpace(text), "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		r.sendText(chatID, i18n.T(lang, "invalid_phone"), nil)
		return
	}
	formatted := phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	if err := r.Users.SetPhone(ctx, userID, phonenumbers.Format(num, phonenumbers.E164)); err != nil {
		r.Log.Error("telegram.register.phone", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	if err := r.Users.SetState(ctx, userID, store.StateAwaitConfirm); err != nil {
		r.Log.Error("telegram.register.state", "user_id", userID, "error", err)
		return
	}
	name, err := r.Users.Name(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.register.name_read", "user_id", userID, "error", err)
	}
	r.armRegistrationTimer(chatID, userID)
	r.sendText(chatID, i18n.Tf(lang, "confirmation", map[string]any{
		"name":                   name,
		"formatted_phone_number": formatted,
	}), confirmKeyboard(lang))
}

func (r *Router) processConfirmation(ctx context.Context, chatID, userID int64, text string) {
	lang := r.lang(ctx, userID)
	if !lo.Contains(i18n.All("correct"), strings.TrimSpace(text)) {
		r.sendText(chatID, i18n.T(lang, "final_confirmation"), confirmKeyboard(lang))
		return
	}
	r.sessions.disarm(userID)
	if err := r.Users.Register(ctx, userID, WelcomePoints); err != nil {
		r.Log.Error("telegram.register.credit", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	if err := r.Users.SetState(ctx, userID, store.StateIdle); err != nil {
		r.Log.Error("telegram.register.state", "user_id", userID, "error", err)
	}
	r.Log.Info("telegram.register.done", "user_id", userID)
	r.sendText(chatID, i18n.T(lang, "thanks_register"), mainMenuKeyboard(lang))
}

// cancelRegistration aborts an in-flight registration and clears any
// partial profile data. Safe to call when nothing is in flight.
func (r *Router) cancelRegistration(ctx context.Context, chatID, userID int64) {
	r.sessions.disarm(userID)
	state, err := r.Users.State(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.register.cancel", "user_id", userID, "error", err)
		return
	}
	if state == store.StateIdle {
		return
	}
	if err := r.Users.ClearProfile(ctx, userID); err != nil {
		r.Log.Error("telegram.register.clear", "user_id", userID, "error", err)
	}
	if err := r.Users.SetState(ctx, userID, store.StateIdle); err != nil {
		r.Log.Error("telegram.register.state", "user_id", userID, "error", err)
	}
	lang := r.lang(ctx, userID)
	r.sendText(chatID, i18n.T(lang, "cancel_register"), registerKeyboard(lang))
}

func (r *Router) armRegistrationTimer(chatID, userID int64) {
	r.sessions.arm(userID, registrationTimeout, func() {
		r.Log.Info("telegram.register.timeout", "user_id", userID)
		r.cancelRegistration(context.Background(), chatID, userID)
	})
}
