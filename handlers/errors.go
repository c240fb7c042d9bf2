package handlers

import (
	"errors"
	"net/http"

	"github.com/ferreirogomes/fraciona/ledger"
	"github.com/ferreirogomes/fraciona/services"
)

// writeError mapeia os erros sentinela do núcleo para status HTTP. Toda
// falha de pré-condição deixa o estado intacto, então conflitos de estado
// viram 409 e o chamador decide se reenvia.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidParameters), errors.Is(err, ledger.ErrOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrDuplicateVote),
		errors.Is(err, ledger.ErrSupplyCapExceeded),
		errors.Is(err, ledger.ErrNothingToRedeem),
		errors.Is(err, ledger.ErrPaymentTransferFailed),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
