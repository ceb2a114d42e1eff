// Package payment implements Robokassa payment links and result-notification
// signature checks.
package payment

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const defaultPaymentURL = "https://auth.robokassa.kz/Merchant/Index.aspx"

// Signature is the MD5 hex digest of the arguments joined with ":".
func Signature(args ...string) string {
	sum := md5.Sum([]byte(strings.Join(args, ":")))
	return hex.EncodeToString(sum[:])
}

// Merchant holds the credentials needed to sign links and verify results.
type Merchant struct {
	Login     string
	Password1 string // signs outgoing payment links
	Password2 string // verifies result notifications
	IsTest    bool
}

// PaymentLink builds the signed redirect URL for an invoice.
func (m Merchant) PaymentLink(cost int, invoiceID int64, description string) string {
	sig := Signature(m.Login, fmt.Sprint(cost), fmt.Sprint(invoiceID), m.Password1)
	q := url.Values{}
	q.Set("MerchantLogin", m.Login)
	q.Set("OutSum", fmt.Sprint(cost))
	q.Set("InvId", fmt.Sprint(invoiceID))
	q.Set("Description", description)
	q.Set("SignatureValue", sig)
	if m.IsTest {
		q.Set("IsTest", "1")
	} else {
		q.Set("IsTest", "0")
	}
	return defaultPaymentURL + "?" + q.Encode()
}

// VerifyResult checks the SignatureValue of a ResultURL notification.
// OutSum and InvId are compared as the raw strings Robokassa sent.
func (m Merchant) VerifyResult(outSum, invID, signature string) bool {
	expected := Signature(outSum, invID, m.Password2)
	return strings.EqualFold(expected, signature)
}
