package ledger

import "errors"

// Erros sentinela do núcleo. Toda falha deixa o estado do ledger intacto;
// os handlers mapeiam cada um para o status HTTP correspondente.
var (
	// ErrInvalidState indica uma operação fora do estado exigido
	// (ex: comprar fora de OPEN, resgatar fora de SOLD).
	ErrInvalidState = errors.New("operação não permitida no estado atual do ativo")

	// ErrSupplyCapExceeded indica uma compra que ultrapassaria o maxSupply.
	ErrSupplyCapExceeded = errors.New("compra excede o limite de cotas do ativo")

	// ErrPaymentTransferFailed indica que o ledger de pagamento recusou a
	// movimentação (saldo ou allowance insuficiente). O motivo original é
	// encadeado via %w.
	ErrPaymentTransferFailed = errors.New("transferência no ledger de pagamento falhou")

	// ErrDuplicateVote indica que o titular já votou neste ativo.
	ErrDuplicateVote = errors.New("titular já votou pela venda")

	// ErrUnauthorized indica que o chamador não é o administrador do ativo.
	ErrUnauthorized = errors.New("chamador não autorizado para esta operação")

	// ErrNothingToRedeem indica resgate com saldo zero.
	ErrNothingToRedeem = errors.New("nada a resgatar: saldo de cotas é zero")

	// ErrInvalidParameters indica argumentos vazios ou não positivos.
	ErrInvalidParameters = errors.New("parâmetros inválidos")

	// ErrOverflow indica que a aritmética de valores estouraria uint64.
	// O núcleo rejeita em vez de deixar o valor dar a volta silenciosamente.
	ErrOverflow = errors.New("estouro aritmético no cálculo de valores")

	// ErrInsufficientBalance indica saldo insuficiente no ledger de pagamento.
	ErrInsufficientBalance = errors.New("saldo insuficiente")

	// ErrInsufficientAllowance indica allowance insuficiente para transferFrom.
	ErrInsufficientAllowance = errors.New("allowance insuficiente")
)
