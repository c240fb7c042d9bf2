package projection

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ferreirogomes/fraciona/models"
)

// Store é a fatia de leitura do feed que a projeção consome.
type Store interface {
	EventsAfter(seq int64, limit int) ([]models.Event, error)
}

// Tamanho de página ao percorrer o feed.
const batchSize = 500

// HolderPosition é uma posição no ranking de titulares de um ativo.
type HolderPosition struct {
	HolderID string `json:"holder_id"`
	Balance  int64  `json:"balance"`
}

// HolderProjection reconstrói saldos e ranking de titulares reproduzindo o
// feed de eventos, sem nunca consultar os mapas internos dos ledgers. É a
// camada de descoberta: somente leitura, sempre um pouco atrás do feed.
type HolderProjection struct {
	store    Store
	interval time.Duration

	mu       sync.RWMutex
	cursor   int64
	balances map[string]map[string]int64 // assetID -> titular -> saldo
}

// New cria a projeção com o intervalo de varredura do feed.
func New(store Store, interval time.Duration) *HolderProjection {
	return &HolderProjection{
		store:    store,
		interval: interval,
		balances: make(map[string]map[string]int64),
	}
}

// Start varre o feed em ciclo até o contexto ser cancelado.
func (p *HolderProjection) Start(ctx context.Context) {
	log.Println("Iniciando projeção de titulares...")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.CatchUp(); err != nil {
			log.Printf("Erro ao atualizar projeção: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("Projeção de titulares encerrada.")
			return
		case <-ticker.C:
		}
	}
}

// CatchUp consome todos os eventos após o cursor atual, em páginas.
func (p *HolderProjection) CatchUp() error {
	for {
		p.mu.RLock()
		cursor := p.cursor
		p.mu.RUnlock()

		events, err := p.store.EventsAfter(cursor, batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		p.mu.Lock()
		for _, event := range events {
			p.apply(event)
			p.cursor = event.Seq
		}
		p.mu.Unlock()

		if len(events) < batchSize {
			return nil
		}
	}
}

// apply reaplica um evento de mudança de saldo. Pré-condição: lock adquirido.
func (p *HolderProjection) apply(event models.Event) {
	switch event.Type {
	case models.EventPurchase:
		p.credit(event.AssetID, event.ToHolder, event.Amount)
	case models.EventRedemption:
		p.credit(event.AssetID, event.FromHolder, -event.Amount)
	default:
		// Criações, votos, distribuições e movimentos do token de pagamento
		// não alteram saldos de cotas.
	}
}

func (p *HolderProjection) credit(assetID, holder string, delta int64) {
	if assetID == "" || holder == "" {
		return
	}
	holders := p.balances[assetID]
	if holders == nil {
		holders = make(map[string]int64)
		p.balances[assetID] = holders
	}
	holders[holder] += delta
	if holders[holder] <= 0 {
		// Saldo zero é semanticamente ausente.
		delete(holders, holder)
	}
}

// BalanceOf retorna o saldo projetado de um titular.
func (p *HolderProjection) BalanceOf(assetID, holder string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[assetID][holder]
}

// Ranking retorna os titulares de um ativo em ordem decrescente de saldo,
// com desempate pelo ID para o resultado ser estável.
func (p *HolderProjection) Ranking(assetID string) []HolderPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]HolderPosition, 0, len(p.balances[assetID]))
	for holder, balance := range p.balances[assetID] {
		positions = append(positions, HolderPosition{HolderID: holder, Balance: balance})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Balance != positions[j].Balance {
			return positions[i].Balance > positions[j].Balance
		}
		return positions[i].HolderID < positions[j].HolderID
	})
	return positions
}
