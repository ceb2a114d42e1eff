package httpserver

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscan-bot/api/internal/payment"
	"medscan-bot/api/internal/store"
)

var testMerchant = payment.Merchant{
	Login:     "medscan",
	Password1: "pass1",
	Password2: "pass2",
}

func newTestServer(t *testing.T, notify func(userID, points int64)) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, store.NewUserRepo(db), store.NewInvoiceRepo(db),
		testMerchant, notify, slog.Default()), mock
}

func resultURL(outSum string, invID int64, signature string) string {
	q := url.Values{}
	q.Set("OutSum", outSum)
	q.Set("InvId", fmt.Sprint(invID))
	q.Set("SignatureValue", signature)
	return "/api/bot/payment?" + q.Encode()
}

func TestPaymentResultBadSignature(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest("GET", resultURL("500", 42, "deadbeef"), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestPaymentResultCreditsOnce(t *testing.T) {
	var notifiedUser, notifiedPoints int64
	srv, mock := newTestServer(t, func(userID, points int64) {
		notifiedUser, notifiedPoints = userID, points
	})

	mock.ExpectQuery("select invoice_id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"invoice_id", "user_id", "product_id", "points", "price", "processed"}).
			AddRow(42, 777, "500", 500, 500, false))
	mock.ExpectExec("update invoices set processed").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_points").
		WithArgs(int64(777), int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sig := payment.Signature("500", "42", testMerchant.Password2)
	req := httptest.NewRequest("GET", resultURL("500", 42, sig), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "OK42", rec.Body.String())
	assert.Equal(t, int64(777), notifiedUser)
	assert.Equal(t, int64(500), notifiedPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentResultDuplicateNotificationIsIdempotent(t *testing.T) {
	notified := false
	srv, mock := newTestServer(t, func(int64, int64) { notified = true })

	mock.ExpectQuery("select invoice_id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"invoice_id", "user_id", "product_id", "points", "price", "processed"}).
			AddRow(42, 777, "500", 500, 500, true))
	// Processed flag already set: the conditional update touches no rows
	// and no credit statement follows.
	mock.ExpectExec("update invoices set processed").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sig := payment.Signature("500", "42", testMerchant.Password2)
	req := httptest.NewRequest("GET", resultURL("500", 42, sig), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "OK42", rec.Body.String())
	assert.False(t, notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentResultUnknownInvoice(t *testing.T) {
	srv, mock := newTestServer(t, nil)

	mock.ExpectQuery("select invoice_id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"invoice_id", "user_id", "product_id", "points", "price", "processed"}))

	sig := payment.Signature("500", "42", testMerchant.Password2)
	req := httptest.NewRequest("GET", resultURL("500", 42, sig), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}
