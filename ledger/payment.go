package ledger

import (
	"fmt"
	"sync"
)

// PaymentLedger é a capacidade de pagamento que o núcleo consome. O ledger de
// ativos nunca altera allowances em nome de um titular: approve é sempre uma
// ação prévia do próprio pagador.
type PaymentLedger interface {
	BalanceOf(holder string) uint64
	Allowance(owner, spender string) uint64
	Approve(owner, spender string, amount uint64) error
	// TransferFrom move `amount` do pagador para o destinatário usando a
	// allowance concedida ao spender. Tudo-ou-nada: em caso de falha nenhum
	// saldo é alterado.
	TransferFrom(spender, payer, recipient string, amount uint64) error
	// Transfer move fundos diretamente do owner para o destinatário, usada
	// para pagar resgates a partir da custódia do ativo.
	Transfer(owner, to string, amount uint64) error
	// RestoreTransfer reaplica uma movimentação persistida no feed durante a
	// reidratação, sem reemitir no sink.
	RestoreTransfer(from, to string, amount uint64) error
}

// TransferSink recebe cada movimentação de saldo para alimentar o feed de
// descoberta. `from` vazio significa emissão; `to` vazio significa queima.
type TransferSink func(from, to string, amount uint64)

// FaucetGrant é o valor fixo emitido por chamada ao faucet (1000 tokens
// inteiros).
const FaucetGrant = 1000 * AtomicPerShare

// TokenLedger é a implementação em memória do token de pagamento
// (estilo VNDhust): saldos, allowances e um faucet público de valor fixo.
// Todas as mutações de saldo são serializadas por um único mutex.
type TokenLedger struct {
	id     string
	name   string
	symbol string

	mu         sync.RWMutex
	balances   map[string]uint64
	allowances map[string]map[string]uint64

	sink TransferSink
}

// NewTokenLedger cria um token de pagamento vazio. O sink é opcional.
func NewTokenLedger(id, name, symbol string, sink TransferSink) *TokenLedger {
	return &TokenLedger{
		id:         id,
		name:       name,
		symbol:     symbol,
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
		sink:       sink,
	}
}

// ID retorna o identificador do token de pagamento.
func (t *TokenLedger) ID() string { return t.id }

// Name retorna o nome descritivo do token.
func (t *TokenLedger) Name() string { return t.name }

// Symbol retorna o símbolo do token.
func (t *TokenLedger) Symbol() string { return t.symbol }

// BalanceOf retorna o saldo atual do titular.
func (t *TokenLedger) BalanceOf(holder string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[holder]
}

// Allowance retorna quanto o spender ainda pode gastar em nome do owner.
func (t *TokenLedger) Allowance(owner, spender string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner][spender]
}

// Faucet credita FaucetGrant ao titular. Público e de valor fixo, pensado
// para demonstrações e ambientes de teste.
func (t *TokenLedger) Faucet(holder string) (uint64, error) {
	if holder == "" {
		return 0, ErrInvalidParameters
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	updated, err := addChecked(t.balances[holder], FaucetGrant)
	if err != nil {
		return 0, err
	}
	t.balances[holder] = updated
	t.emit("", holder, FaucetGrant)
	return updated, nil
}

// Approve define (substitui, não acumula) a allowance do spender.
func (t *TokenLedger) Approve(owner, spender string, amount uint64) error {
	if owner == "" || spender == "" {
		return ErrInvalidParameters
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]uint64)
	}
	t.allowances[owner][spender] = amount
	return nil
}

// TransferFrom debita allowance e saldo do pagador e credita o destinatário.
func (t *TokenLedger) TransferFrom(spender, payer, recipient string, amount uint64) error {
	if spender == "" || payer == "" || recipient == "" || amount == 0 {
		return ErrInvalidParameters
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowances[payer][spender]
	if allowed < amount {
		return fmt.Errorf("%w: spender %s tem %d, precisa de %d", ErrInsufficientAllowance, spender, allowed, amount)
	}
	if err := t.move(payer, recipient, amount); err != nil {
		return err
	}
	t.allowances[payer][spender] = allowed - amount
	return nil
}

// Transfer move fundos diretamente do owner para o destinatário.
func (t *TokenLedger) Transfer(owner, to string, amount uint64) error {
	if owner == "" || to == "" || amount == 0 {
		return ErrInvalidParameters
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(owner, to, amount)
}

// RestoreTransfer reaplica uma movimentação persistida: `from` vazio credita
// uma emissão (faucet), `to` vazio debita uma queima, ambos preenchidos movem
// entre contas. Nada é emitido no sink, o evento já está no feed.
func (t *TokenLedger) RestoreTransfer(from, to string, amount uint64) error {
	if amount == 0 || (from == "" && to == "") {
		return ErrInvalidParameters
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if from != "" && t.balances[from] < amount {
		return fmt.Errorf("%w: titular %s tem %d, precisa de %d", ErrInsufficientBalance, from, t.balances[from], amount)
	}
	credited := t.balances[to]
	if to != "" {
		var err error
		credited, err = addChecked(t.balances[to], amount)
		if err != nil {
			return err
		}
	}
	if from != "" {
		t.balances[from] -= amount
	}
	if to != "" {
		t.balances[to] = credited
	}
	return nil
}

// move executa a movimentação de saldo. Pré-condição: lock já adquirido.
func (t *TokenLedger) move(from, to string, amount uint64) error {
	balance := t.balances[from]
	if balance < amount {
		return fmt.Errorf("%w: titular %s tem %d, precisa de %d", ErrInsufficientBalance, from, balance, amount)
	}
	updated, err := addChecked(t.balances[to], amount)
	if err != nil {
		return err
	}
	t.balances[from] = balance - amount
	t.balances[to] = updated
	t.emit(from, to, amount)
	return nil
}

func (t *TokenLedger) emit(from, to string, amount uint64) {
	if t.sink != nil {
		t.sink(from, to, amount)
	}
}
