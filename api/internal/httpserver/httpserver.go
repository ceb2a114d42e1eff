// Package httpserver exposes the bot's HTTP surface: the health check,
// the payment-result notification endpoint and, in webhook mode, the
// Telegram update hook mounted by the caller.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"medscan-bot/api/internal/payment"
	"medscan-bot/api/internal/store"
)

type Server struct {
	DB       *sql.DB
	Users    *store.UserRepo
	Invoices *store.InvoiceRepo
	Merchant payment.Merchant

	// Notify tells the user their balance was credited. May be nil.
	Notify func(userID, points int64)

	Log *slog.Logger
	mux *http.ServeMux
}

func New(db *sql.DB, users *store.UserRepo, invoices *store.InvoiceRepo,
	merchant payment.Merchant, notify func(userID, points int64), log *slog.Logger) *Server {
	s := &Server{
		DB:       db,
		Users:    users,
		Invoices: invoices,
		Merchant: merchant,
		Notify:   notify,
		Log:      log,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/bot/payment", s.handlePaymentResult)
	return s
}

// Handle mounts an extra handler, e.g. the Telegram webhook.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Start(port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Log.Info("http.listen", "port", port)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		s.Log.Error("http.health", "error", err)
		http.Error(w, "db unreachable", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprint(w, "ok")
}

// handlePaymentResult is the merchant's ResultURL callback. The reply
// body must be exactly "OK<InvId>" for the merchant to stop retrying,
// so a repeated notification for an already-processed invoice still
// answers OK without crediting twice.
func (s *Server) handlePaymentResult(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outSum := q.Get("OutSum")
	invID := q.Get("InvId")
	signature := q.Get("SignatureValue")

	if !s.Merchant.VerifyResult(outSum, invID, signature) {
		s.Log.Warn("http.payment.bad_signature", "inv_id", invID)
		http.Error(w, "bad sign", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(invID, 10, 64)
	if err != nil {
		http.Error(w, "bad invoice id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	inv, err := s.Invoices.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.Log.Warn("http.payment.unknown_invoice", "inv_id", id)
		http.Error(w, "unknown invoice", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Log.Error("http.payment.find", "inv_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.Invoices.MarkProcessed(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already credited by an earlier notification.
			fmt.Fprintf(w, "OK%d", id)
			return
		}
		s.Log.Error("http.payment.mark", "inv_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.Users.AddPoints(ctx, inv.UserID, inv.Points); err != nil {
		s.Log.Error("http.payment.credit", "inv_id", id, "user_id", inv.UserID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Log.Info("http.payment.processed", "inv_id", id, "user_id", inv.UserID, "points", inv.Points)
	if s.Notify != nil {
		s.Notify(inv.UserID, inv.Points)
	}
	fmt.Fprintf(w, "OK%d", id)
}
