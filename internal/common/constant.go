// Package common contains shared constants and sentinel errors used across
// the jobs-manager client and server components.
package common

// SessionTokenHeaderName is the HTTP header carrying the session token
// on authenticated requests.
const SessionTokenHeaderName = "X-Session-Token"

// CSRFTokenHeaderName is the HTTP header carrying the anti-forgery token
// on mutating requests.
const CSRFTokenHeaderName = "X-CSRF-Token"

// DocumentKind identifies which editable document family a record belongs to.
type DocumentKind string

const (
	KindTimesheet     DocumentKind = "timesheet"
	KindPurchaseOrder DocumentKind = "purchase_order"
)

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	return k == KindTimesheet || k == KindPurchaseOrder
}

// NumberPrefix returns the prefix used for server-assigned document numbers.
func (k DocumentKind) NumberPrefix() string {
	if k == KindPurchaseOrder {
		return "PO"
	}
	return "TS"
}
