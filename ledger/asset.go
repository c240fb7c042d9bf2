package ledger

import (
	"fmt"
	"sync"
)

// AssetLedger governa o ciclo de vida de um único ativo tokenizado: emissão
// limitada de cotas, votação pela venda, distribuição do valor arrecadado e
// resgate pro-rata com queima. Um RWMutex por instância serializa todas as
// mutações; ativos distintos operam em paralelo sem estado compartilhado.
//
// Invariantes mantidas em qualquer sequência de operações:
//   - totalSupply == soma dos saldos enquanto OPEN/FOR_SALE, e nunca excede
//     maxSupply;
//   - após SOLD, totalSupply congela no valor histórico usado para fixar o
//     preço de resgate (queimas não o decrementam);
//   - finalRedeemPrice é definido exatamente uma vez;
//   - o resto da divisão inteira na distribuição fica retido para sempre na
//     custódia do ativo.
type AssetLedger struct {
	id            string
	name          string
	symbol        string
	maxSupply     uint64
	pricePerToken uint64
	adminID       string
	payment       PaymentLedger
	sink          MutationSink

	mu               sync.RWMutex
	state            AssetState
	totalSupply      uint64
	balances         map[string]uint64
	hasVoted         map[string]bool
	votesForSale     uint64
	finalRedeemPrice uint64
	retained         uint64
}

// MutationKind identifica a mutação aplicada, para o consumidor do sink
// traduzi-la em um evento do feed.
type MutationKind int

const (
	MutationPurchase MutationKind = iota
	MutationVote
	MutationDistribution
	MutationRedemption
)

// MutationSink recebe cada mutação aplicada ainda dentro da seção crítica do
// ledger, de modo que a ordem de persistência no feed seja a mesma ordem de
// aplicação. O sink não pode chamar de volta métodos do ledger: o lock não é
// reentrante.
type MutationSink func(kind MutationKind, holder string, amount uint64)

// NewAssetLedger cria um ativo em OPEN, sem cotas emitidas. A validação dos
// parâmetros de criação é responsabilidade do registro; aqui os valores são
// assumidos como já validados e imutáveis. O sink é opcional.
func NewAssetLedger(id, name, symbol string, maxSupply, pricePerToken uint64, adminID string, payment PaymentLedger, sink MutationSink) *AssetLedger {
	return &AssetLedger{
		id:            id,
		name:          name,
		symbol:        symbol,
		maxSupply:     maxSupply,
		pricePerToken: pricePerToken,
		adminID:       adminID,
		payment:       payment,
		sink:          sink,
		state:         StateOpen,
		balances:      make(map[string]uint64),
		hasVoted:      make(map[string]bool),
	}
}

// emit entrega a mutação ao sink. Pré-condição: lock já adquirido.
func (a *AssetLedger) emit(kind MutationKind, holder string, amount uint64) {
	if a.sink != nil {
		a.sink(kind, holder, amount)
	}
}

// Buy emite `amount` unidades de cota para o titular, puxando o custo do
// ledger de pagamento via transferFrom (o titular precisa ter aprovado a
// custódia do ativo antes). Único caminho de emissão.
func (a *AssetLedger) Buy(holder string, amount uint64) (uint64, error) {
	if holder == "" || amount == 0 {
		return 0, ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateOpen {
		return 0, ErrInvalidState
	}
	newSupply, err := addChecked(a.totalSupply, amount)
	if err != nil {
		return 0, err
	}
	if newSupply > a.maxSupply {
		return 0, ErrSupplyCapExceeded
	}
	cost, err := mulChecked(amount, a.pricePerToken)
	if err != nil {
		return 0, err
	}
	newBalance, err := addChecked(a.balances[holder], amount)
	if err != nil {
		return 0, err
	}

	// A movimentação de pagamento e a emissão são tudo-ou-nada: só creditamos
	// as cotas depois que o transferFrom confirmou.
	if err := a.payment.TransferFrom(a.id, holder, a.id, cost); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
	}
	a.balances[holder] = newBalance
	a.totalSupply = newSupply
	a.emit(MutationPurchase, holder, amount)
	return cost, nil
}

// VoteForSale registra o voto do titular com peso igual ao seu saldo atual.
// Votar de novo é rejeitado (não ignorado), para o chamador distinguir
// "já votou" de "voto aceito". Um saldo zero pode votar, mas contribui com
// peso zero. Quando o peso acumulado alcança toda a oferta emitida o ativo
// passa a FOR_SALE dentro da própria chamada. Retorna true se a transição
// aconteceu.
func (a *AssetLedger) VoteForSale(holder string) (bool, uint64, error) {
	if holder == "" {
		return false, 0, ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateOpen {
		return false, 0, ErrInvalidState
	}
	if a.hasVoted[holder] {
		return false, 0, ErrDuplicateVote
	}

	weight := a.balances[holder]
	votes, err := addChecked(a.votesForSale, weight)
	if err != nil {
		return false, 0, err
	}
	a.hasVoted[holder] = true
	a.votesForSale = votes
	a.emit(MutationVote, holder, weight)

	if a.quorumReached() {
		a.state = StateForSale
		return true, weight, nil
	}
	return false, weight, nil
}

// quorumReached avalia a regra de quórum: o peso votado precisa alcançar a
// oferta emitida no momento da avaliação, ou seja, todo saldo em circulação
// votou pela venda. Pré-condição: lock já adquirido.
func (a *AssetLedger) quorumReached() bool {
	// Sem cotas emitidas não há quórum possível; evita aprovar a venda de um
	// ativo vazio com votos de peso zero.
	if a.totalSupply == 0 {
		return false
	}
	return a.votesForSale >= a.totalSupply
}

// DistributeProceeds deposita o valor da venda na custódia do ativo e fixa o
// preço de resgate por divisão inteira. O resto da divisão fica retido e
// nunca é distribuído. Só o administrador chama, e só uma vez: qualquer
// chamada fora de FOR_SALE falha com ErrInvalidState.
func (a *AssetLedger) DistributeProceeds(caller string, totalAmount uint64) (uint64, error) {
	if caller == "" {
		return 0, ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateForSale {
		return 0, ErrInvalidState
	}
	if caller != a.adminID {
		return 0, ErrUnauthorized
	}
	if totalAmount == 0 {
		return 0, ErrInvalidParameters
	}

	if err := a.payment.TransferFrom(a.id, caller, a.id, totalAmount); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
	}
	// totalSupply > 0 é garantido: FOR_SALE exige quórum sobre oferta emitida.
	a.finalRedeemPrice = totalAmount / a.totalSupply
	a.retained = totalAmount - a.finalRedeemPrice*a.totalSupply
	a.state = StateSold
	a.emit(MutationDistribution, caller, totalAmount)
	return a.finalRedeemPrice, nil
}

// Redeem paga saldo × finalRedeemPrice ao titular e queima suas cotas.
// Resgatar com saldo zero falha com ErrNothingToRedeem: a idempotência é por
// rejeição explícita, não por sucesso vazio. totalSupply não é decrementado,
// pois passou a representar a oferta histórica vendida.
func (a *AssetLedger) Redeem(holder string) (uint64, uint64, error) {
	if holder == "" {
		return 0, 0, ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateSold {
		return 0, 0, ErrInvalidState
	}
	balance := a.balances[holder]
	if balance == 0 {
		return 0, 0, ErrNothingToRedeem
	}
	payout, err := mulChecked(balance, a.finalRedeemPrice)
	if err != nil {
		return 0, 0, err
	}
	if payout > 0 {
		if err := a.payment.Transfer(a.id, holder, payout); err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
		}
	}
	a.balances[holder] = 0
	a.emit(MutationRedemption, holder, balance)
	return payout, balance, nil
}

// --- Acessores de leitura (sem efeitos colaterais) ---

// ID retorna a identidade do ativo, também usada como conta de custódia no
// ledger de pagamento.
func (a *AssetLedger) ID() string { return a.id }

// Name retorna o nome descritivo do ativo.
func (a *AssetLedger) Name() string { return a.name }

// Symbol retorna o símbolo do ativo.
func (a *AssetLedger) Symbol() string { return a.symbol }

// MaxSupply retorna o teto imutável de cotas.
func (a *AssetLedger) MaxSupply() uint64 { return a.maxSupply }

// PricePerToken retorna o preço imutável por cota.
func (a *AssetLedger) PricePerToken() uint64 { return a.pricePerToken }

// AdminID retorna o administrador autorizado a distribuir o valor da venda.
func (a *AssetLedger) AdminID() string { return a.adminID }

// TotalSupply retorna a soma corrente (ou histórica, após SOLD) das cotas.
func (a *AssetLedger) TotalSupply() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalSupply
}

// BalanceOf retorna o saldo de cotas do titular.
func (a *AssetLedger) BalanceOf(holder string) uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[holder]
}

// CurrentState retorna o estado atual do ciclo de vida.
func (a *AssetLedger) CurrentState() AssetState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// VotesForSale retorna o peso acumulado dos votos pela venda.
func (a *AssetLedger) VotesForSale() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.votesForSale
}

// HasVoted informa se o titular já votou.
func (a *AssetLedger) HasVoted(holder string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hasVoted[holder]
}

// FinalRedeemPrice retorna o preço de resgate por cota; só tem significado
// após SOLD.
func (a *AssetLedger) FinalRedeemPrice() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.finalRedeemPrice
}

// Retained retorna o resto da distribuição que permanece na custódia.
func (a *AssetLedger) Retained() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retained
}

// AssetSnapshot é a visão de leitura consistente exposta pela API.
type AssetSnapshot struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	State            string `json:"state"`
	MaxSupply        uint64 `json:"max_supply"`
	PricePerToken    uint64 `json:"price_per_token"`
	TotalSupply      uint64 `json:"total_supply"`
	VotesForSale     uint64 `json:"votes_for_sale"`
	FinalRedeemPrice uint64 `json:"final_redeem_price"`
	Retained         uint64 `json:"retained"`
}

// Snapshot retorna uma fotografia consistente de todos os acessores.
func (a *AssetLedger) Snapshot() AssetSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AssetSnapshot{
		ID:               a.id,
		Name:             a.name,
		Symbol:           a.symbol,
		State:            a.state.String(),
		MaxSupply:        a.maxSupply,
		PricePerToken:    a.pricePerToken,
		TotalSupply:      a.totalSupply,
		VotesForSale:     a.votesForSale,
		FinalRedeemPrice: a.finalRedeemPrice,
		Retained:         a.retained,
	}
}

// --- Reidratação a partir do feed de eventos ---
//
// As variantes Restore* reaplicam o efeito contábil de um evento persistido
// sem movimentar o ledger de pagamento (a movimentação já aconteceu quando o
// evento foi gravado) e sem reemitir no sink (o evento já está no feed).

// RestorePurchase reaplica uma compra persistida.
func (a *AssetLedger) RestorePurchase(holder string, amount uint64) error {
	if holder == "" || amount == 0 {
		return ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateOpen {
		return ErrInvalidState
	}
	newSupply, err := addChecked(a.totalSupply, amount)
	if err != nil {
		return err
	}
	if newSupply > a.maxSupply {
		return ErrSupplyCapExceeded
	}
	newBalance, err := addChecked(a.balances[holder], amount)
	if err != nil {
		return err
	}
	a.balances[holder] = newBalance
	a.totalSupply = newSupply
	return nil
}

// RestoreVote reaplica um voto persistido, reavaliando o quórum com a mesma
// regra da gravação.
func (a *AssetLedger) RestoreVote(holder string) error {
	if holder == "" {
		return ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateOpen {
		return ErrInvalidState
	}
	if a.hasVoted[holder] {
		return ErrDuplicateVote
	}
	votes, err := addChecked(a.votesForSale, a.balances[holder])
	if err != nil {
		return err
	}
	a.hasVoted[holder] = true
	a.votesForSale = votes
	if a.quorumReached() {
		a.state = StateForSale
	}
	return nil
}

// RestoreDistribution reaplica a distribuição persistida.
func (a *AssetLedger) RestoreDistribution(totalAmount uint64) error {
	if totalAmount == 0 {
		return ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateForSale {
		return ErrInvalidState
	}
	a.finalRedeemPrice = totalAmount / a.totalSupply
	a.retained = totalAmount - a.finalRedeemPrice*a.totalSupply
	a.state = StateSold
	return nil
}

// RestoreRedemption reaplica a queima de um resgate persistido.
func (a *AssetLedger) RestoreRedemption(holder string) error {
	if holder == "" {
		return ErrInvalidParameters
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateSold {
		return ErrInvalidState
	}
	a.balances[holder] = 0
	return nil
}
