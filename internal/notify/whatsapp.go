// Package notify builds the WhatsApp deep links the shop uses to confirm
// orders with customers by hand.
package notify

import (
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

const chatBaseURL = "https://wa.me/"

// Line is one row of an order message
type Line struct {
	Name      string
	Quantity  int
	LineTotal decimal.Decimal
}

// LinesFromOrder turns an order's item snapshot into message lines
func LinesFromOrder(items []domain.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{
			Name:      it.Name,
			Quantity:  it.Quantity,
			LineTotal: it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return lines
}

// OrderMessage is the plain text sent to the shop
func OrderMessage(storeName string, lines []Line, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("Hello " + storeName + "! 🛍️\n\n")
	b.WriteString("I would like to place an order:\n")
	for _, l := range lines {
		b.WriteString("• " + l.Name + " (Qty: ")
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteString(") - ₹" + l.LineTotal.StringFixedBank(2) + "\n")
	}
	b.WriteString("\n*Total Amount: ₹" + total.StringFixedBank(2) + "*")
	return b.String()
}

// OrderLink returns a wa.me link that opens a chat with phone prefilled with
// the order message
func OrderLink(phone, storeName string, lines []Line, total decimal.Decimal) string {
	return ContactLink(phone) + "?text=" + escapeText(OrderMessage(storeName, lines, total))
}

// escapeText query-escapes msg with spaces as %20. Some WhatsApp clients show
// a '+' literally; PathEscape is no option as it keeps '&' and '+' as is.
func escapeText(msg string) string {
	return strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}

// ContactLink opens a chat with the shop without a message. Anything but
// digits is stripped from phone, as wa.me expects country code plus number.
func ContactLink(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return chatBaseURL + digits
}
