package transfer

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
)

func TestTransferErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidAmount, http.StatusBadRequest},
		{ledger.ErrInsufficientFunds, http.StatusBadRequest},
		{identity.ErrInvalidPIN, http.StatusForbidden},
		{ledger.ErrWalletLocked, http.StatusForbidden},
		{ErrRecipientNotFound, http.StatusNotFound},
		{ErrConfirmationExpired, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		if !errors.As(transferError(tc.err), &fe) {
			t.Fatalf("%v: not a fiber error", tc.err)
		}
		if fe.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, fe.Code, tc.want)
		}
	}
}
