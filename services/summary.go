package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const summaryTimeLayout = "2006-01-02 15:04:05"

// Escaped for Telegram's HTML parse mode.
var summaryTemplate = template.Must(template.New("order_summary").Parse(
	`<b>New order</b> {{.CheckoutID}}
Customer: {{.Name}}{{if .Username}} (@{{.Username}}){{end}}
Phone: {{.Phone}}
Address: {{.Address}}

{{range .Lines}}{{.Name}} x{{.Quantity}} - ${{.LineTotal}}
{{end}}
Total: ${{.PreDiscountTotal}}
Cashback redeemed: ${{.CashbackApplied}}
Amount due: ${{.FinalTotal}}
Payment: {{.PaymentMethod}}
Cashback earned: ${{.CashbackEarned}}
Date: {{.Date}} UTC`))

type summaryLine struct {
	Name      string
	Quantity  int
	LineTotal string
}

// OrderSummary is the staff-facing description of a committed checkout.
type OrderSummary struct {
	CheckoutID       uuid.UUID
	TelegramID       int64
	Name             string
	Username         string
	Phone            string
	Address          string
	Lines            []summaryLine
	PreDiscountTotal string
	CashbackApplied  string
	FinalTotal       string
	PaymentMethod    string
	CashbackEarned   string
	Date             string
}

// NewOrderSummary collects what staff need from the committed session. user
// and profile may be nil if they were removed concurrently.
func NewOrderSummary(s *models.CheckoutSession, user *models.User, profile *models.UserProfile, earned decimal.Decimal, committedAt time.Time) OrderSummary {
	sum := OrderSummary{
		CheckoutID:       s.ID,
		TelegramID:       s.TelegramID,
		Name:             fmt.Sprintf("user %d", s.TelegramID),
		PreDiscountTotal: s.PreDiscountTotal.StringFixed(models.MoneyPlaces),
		CashbackApplied:  s.CashbackApplied.StringFixed(models.MoneyPlaces),
		FinalTotal:       s.FinalTotal().StringFixed(models.MoneyPlaces),
		PaymentMethod:    string(s.PaymentMethod),
		CashbackEarned:   earned.StringFixed(models.MoneyPlaces),
		Date:             committedAt.UTC().Format(summaryTimeLayout),
	}
	if user != nil {
		if name := user.DisplayName(); name != "" {
			sum.Name = name
		}
		sum.Username = user.Username
	}
	if profile != nil {
		sum.Phone = profile.PhoneNumber
		sum.Address = profile.Address
	}
	for _, line := range s.Lines {
		sum.Lines = append(sum.Lines, summaryLine{
			Name:      line.Name,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.StringFixed(models.MoneyPlaces),
		})
	}
	return sum
}

func (s OrderSummary) Render() (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render order summary: %w", err)
	}
	return buf.String(), nil
}
