package payment

import (
	"context"
	"fmt"
)

// Built-in method tags.
const (
	TagBankTransfer   = "bank_transfer"
	TagCard           = "card"
	TagCashOnDelivery = "cash_on_delivery"
	TagCrypto         = "crypto"
	TagQR             = "qr"
)

func settleWithPrompt(ctx context.Context, confirm Confirmer, prompt string) (Outcome, error) {
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil {
		return "", err
	}
	if !ok {
		return Declined, nil
	}
	return Settled, nil
}

// BankTransfer settles via a wire transfer confirmed out of band.
type BankTransfer struct{}

func (BankTransfer) Tag() string { return TagBankTransfer }

func (BankTransfer) Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("confirm bank transfer of %s for %s", req.Amount, req.CustomerName)
	return settleWithPrompt(ctx, confirm, prompt)
}

// Card settles via a card charge.
type Card struct{}

func (Card) Tag() string { return TagCard }

func (Card) Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("confirm card charge of %s for %s", req.Amount, req.CustomerName)
	return settleWithPrompt(ctx, confirm, prompt)
}

// CashOnDelivery defers collection to the courier; the confirmation only
// acknowledges the obligation.
type CashOnDelivery struct{}

func (CashOnDelivery) Tag() string { return TagCashOnDelivery }

func (CashOnDelivery) Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("%s will pay %s on delivery, confirm", req.CustomerName, req.Amount)
	return settleWithPrompt(ctx, confirm, prompt)
}

// Crypto settles via a wallet transfer confirmed out of band.
type Crypto struct{}

func (Crypto) Tag() string { return TagCrypto }

func (Crypto) Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("confirm crypto transfer of %s for %s", req.Amount, req.CustomerName)
	return settleWithPrompt(ctx, confirm, prompt)
}

// QR settles via a scanned QR code and tallies every attempt on its
// Counter.
type QR struct {
	Counter Counter
}

func (QR) Tag() string { return TagQR }

func (q QR) Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error) {
	prompt := fmt.Sprintf("confirm QR payment of %s for %s", req.Amount, req.CustomerName)
	outcome, err := settleWithPrompt(ctx, confirm, prompt)
	if err != nil {
		return "", err
	}
	q.Counter.Inc(outcome)
	return outcome, nil
}
