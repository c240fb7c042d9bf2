package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ferreirogomes/fraciona/ledger"
	"github.com/ferreirogomes/fraciona/models"

	"github.com/google/uuid"
)

// Store é a superfície de persistência que o registro consome. Implementada
// por storage.DB; mockada nos testes de unidade.
type Store interface {
	SaveAsset(asset models.Asset) error
	GetAsset(id string) (models.Asset, bool, error)
	ListAssets() ([]models.Asset, error)
	SaveEvent(event models.Event) error
	EventsByAssetID(assetID string) ([]models.Event, error)
}

// Mirror é o espelho opcional na blockchain. Falhas do espelho nunca
// invalidam a operação do núcleo; o registro apenas as registra em log.
type Mirror interface {
	MirrorCreation(asset models.Asset) error
	MirrorPurchase(assetID, holder string, amount uint64) error
	MirrorRedemption(assetID, holder string, amount uint64) error
}

// RegistryService é a fábrica e o diretório de ativos tokenizados: valida os
// parâmetros de criação, instancia o AssetLedger vinculado ao token de
// pagamento e anexa o registro de criação ao feed. Depois da criação cada
// ativo se governa sozinho; o registro não exerce mais nenhuma autoridade
// sobre ele.
type RegistryService struct {
	store    Store
	payments map[string]ledger.PaymentLedger
	mirror   Mirror // opcional

	mu      sync.RWMutex
	ledgers map[string]*ledger.AssetLedger
}

// NewRegistryService cria o registro. `payments` mapeia os IDs de tokens de
// pagamento resolvíveis; `mirror` pode ser nil.
func NewRegistryService(store Store, payments map[string]ledger.PaymentLedger, mirror Mirror) *RegistryService {
	return &RegistryService{
		store:    store,
		payments: payments,
		mirror:   mirror,
		ledgers:  make(map[string]*ledger.AssetLedger),
	}
}

// CreateAsset valida os parâmetros, instancia o ledger do ativo e grava o
// registro de criação mais o evento de descoberta. Retorna o registro criado.
func (s *RegistryService) CreateAsset(name, symbol string, maxSupply, pricePerToken uint64, paymentLedgerID, adminID string) (models.Asset, error) {
	if name == "" || symbol == "" || adminID == "" {
		return models.Asset{}, fmt.Errorf("%w: nome, símbolo e administrador são obrigatórios", ledger.ErrInvalidParameters)
	}
	if maxSupply == 0 || pricePerToken == 0 {
		return models.Asset{}, fmt.Errorf("%w: maxSupply e pricePerToken devem ser positivos", ledger.ErrInvalidParameters)
	}
	// O diretório e o feed persistem valores como int64.
	if maxSupply > math.MaxInt64 || pricePerToken > math.MaxInt64 {
		return models.Asset{}, fmt.Errorf("%w: maxSupply e pricePerToken excedem a faixa persistível", ledger.ErrInvalidParameters)
	}
	payment, ok := s.payments[paymentLedgerID]
	if !ok {
		return models.Asset{}, fmt.Errorf("%w: token de pagamento %q não resolvível", ledger.ErrInvalidParameters, paymentLedgerID)
	}

	asset := models.Asset{
		ID:              uuid.New().String(),
		Name:            name,
		Symbol:          symbol,
		MaxSupply:       int64(maxSupply),
		PricePerToken:   int64(pricePerToken),
		PaymentLedgerID: paymentLedgerID,
		AdminID:         adminID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.SaveAsset(asset); err != nil {
		return models.Asset{}, fmt.Errorf("falha ao registrar ativo: %w", err)
	}

	al := ledger.NewAssetLedger(asset.ID, name, symbol, maxSupply, pricePerToken, adminID, payment, s.eventSink(asset.ID))

	// O evento de criação entra no feed antes de o ledger ficar visível, para
	// nenhuma operação do ativo ser persistida antes dele.
	s.appendEvent(models.Event{
		AssetID:  asset.ID,
		Type:     models.EventAssetCreated,
		ToHolder: adminID,
		Amount:   asset.MaxSupply,
	})

	s.mu.Lock()
	s.ledgers[asset.ID] = al
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.MirrorCreation(asset); err != nil {
			log.Printf("Falha ao espelhar criação do ativo %s: %v", asset.ID, err)
		}
	}

	log.Printf("Ativo %s (%s) criado: maxSupply=%d, preço=%d", asset.Symbol, asset.ID, maxSupply, pricePerToken)
	return asset, nil
}

// Ledger resolve o ledger em memória de um ativo.
func (s *RegistryService) Ledger(assetID string) (*ledger.AssetLedger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	al, ok := s.ledgers[assetID]
	return al, ok
}

// GetAsset busca o registro de criação no diretório.
func (s *RegistryService) GetAsset(assetID string) (models.Asset, bool, error) {
	return s.store.GetAsset(assetID)
}

// ListAssets lista o diretório completo.
func (s *RegistryService) ListAssets() ([]models.Asset, error) {
	return s.store.ListAssets()
}

// eventSink traduz as mutações do ledger em eventos do feed. O ledger o chama
// ainda dentro da sua seção crítica, então a ordem de gravação no feed é a
// mesma ordem de aplicação das mutações.
func (s *RegistryService) eventSink(assetID string) ledger.MutationSink {
	return func(kind ledger.MutationKind, holder string, amount uint64) {
		event := models.Event{AssetID: assetID, Amount: int64(amount)}
		switch kind {
		case ledger.MutationPurchase:
			event.Type = models.EventPurchase
			event.ToHolder = holder
		case ledger.MutationVote:
			event.Type = models.EventVote
			event.FromHolder = holder
		case ledger.MutationDistribution:
			event.Type = models.EventDistribution
			event.FromHolder = holder
		case ledger.MutationRedemption:
			event.Type = models.EventRedemption
			event.FromHolder = holder
		}
		s.appendEvent(event)
	}
}

// Buy executa a compra no ledger do ativo; o evento de emissão entra no feed
// pelo sink, dentro da seção crítica do ativo.
func (s *RegistryService) Buy(assetID, holder string, amount uint64) (uint64, error) {
	al, ok := s.Ledger(assetID)
	if !ok {
		return 0, ErrAssetNotFound
	}
	cost, err := al.Buy(holder, amount)
	if err != nil {
		return 0, err
	}
	if s.mirror != nil {
		if err := s.mirror.MirrorPurchase(assetID, holder, amount); err != nil {
			log.Printf("Falha ao espelhar compra no ativo %s: %v", assetID, err)
		}
	}
	return cost, nil
}

// VoteForSale registra o voto; o evento com o peso computado entra no feed
// pelo sink. Retorna true quando o quórum foi atingido nesta chamada.
func (s *RegistryService) VoteForSale(assetID, holder string) (bool, error) {
	al, ok := s.Ledger(assetID)
	if !ok {
		return false, ErrAssetNotFound
	}
	approved, _, err := al.VoteForSale(holder)
	if err != nil {
		return false, err
	}
	if approved {
		log.Printf("Quórum atingido: ativo %s agora está FOR_SALE", assetID)
	}
	return approved, nil
}

// DistributeProceeds deposita o valor da venda; o evento de distribuição
// entra no feed pelo sink. Retorna o preço de resgate fixado.
func (s *RegistryService) DistributeProceeds(assetID, caller string, totalAmount uint64) (uint64, error) {
	al, ok := s.Ledger(assetID)
	if !ok {
		return 0, ErrAssetNotFound
	}
	redeemPrice, err := al.DistributeProceeds(caller, totalAmount)
	if err != nil {
		return 0, err
	}
	log.Printf("Ativo %s vendido: preço de resgate fixado em %d", assetID, redeemPrice)
	return redeemPrice, nil
}

// Redeem paga o resgate pro-rata e queima as cotas; o evento de queima entra
// no feed pelo sink. Retorna o valor pago.
func (s *RegistryService) Redeem(assetID, holder string) (uint64, error) {
	al, ok := s.Ledger(assetID)
	if !ok {
		return 0, ErrAssetNotFound
	}
	payout, burned, err := al.Redeem(holder)
	if err != nil {
		return 0, err
	}
	if s.mirror != nil {
		if err := s.mirror.MirrorRedemption(assetID, holder, burned); err != nil {
			log.Printf("Falha ao espelhar resgate no ativo %s: %v", assetID, err)
		}
	}
	return payout, nil
}

// Restore reidrata os ledgers em memória a partir do diretório e do feed de
// eventos persistidos. Primeiro os tokens de pagamento (saldos e custódias
// vêm das movimentações gravadas pelo sink), depois cada ativo; tudo volta ao
// mesmo estado que tinha quando os eventos foram gravados. Allowances não são
// eventadas: após o restart cada pagador aprova de novo antes de operar.
func (s *RegistryService) Restore(ctx context.Context) error {
	for id, payment := range s.payments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		events, err := s.store.EventsByAssetID(id)
		if err != nil {
			return fmt.Errorf("falha ao restaurar movimentações do token %s: %w", id, err)
		}
		for _, event := range events {
			if event.Type != models.EventPaymentTransfer {
				continue
			}
			if err := payment.RestoreTransfer(event.FromHolder, event.ToHolder, uint64(event.Amount)); err != nil {
				return fmt.Errorf("falha ao reaplicar movimentação %d do token %s: %w", event.Seq, id, err)
			}
		}
		log.Printf("Token de pagamento %s restaurado (%d eventos)", id, len(events))
	}

	assets, err := s.store.ListAssets()
	if err != nil {
		return fmt.Errorf("falha ao restaurar diretório de ativos: %w", err)
	}

	for _, asset := range assets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payment, ok := s.payments[asset.PaymentLedgerID]
		if !ok {
			return fmt.Errorf("ativo %s referencia token de pagamento %q não resolvível", asset.ID, asset.PaymentLedgerID)
		}
		al := ledger.NewAssetLedger(asset.ID, asset.Name, asset.Symbol,
			uint64(asset.MaxSupply), uint64(asset.PricePerToken), asset.AdminID, payment, s.eventSink(asset.ID))

		events, err := s.store.EventsByAssetID(asset.ID)
		if err != nil {
			return fmt.Errorf("falha ao restaurar eventos do ativo %s: %w", asset.ID, err)
		}
		for _, event := range events {
			if err := replayEvent(al, event); err != nil {
				return fmt.Errorf("falha ao reaplicar evento %d do ativo %s: %w", event.Seq, asset.ID, err)
			}
		}

		s.mu.Lock()
		s.ledgers[asset.ID] = al
		s.mu.Unlock()
		log.Printf("Ativo %s restaurado no estado %s (%d eventos)", asset.ID, al.CurrentState(), len(events))
	}
	return nil
}

// replayEvent reaplica um evento persistido a um ledger recém-criado.
func replayEvent(al *ledger.AssetLedger, event models.Event) error {
	switch event.Type {
	case models.EventAssetCreated:
		return nil
	case models.EventPurchase:
		return al.RestorePurchase(event.ToHolder, uint64(event.Amount))
	case models.EventVote:
		return al.RestoreVote(event.FromHolder)
	case models.EventDistribution:
		return al.RestoreDistribution(uint64(event.Amount))
	case models.EventRedemption:
		return al.RestoreRedemption(event.FromHolder)
	default:
		log.Printf("Evento %d de tipo desconhecido %q ignorado na restauração", event.Seq, event.Type)
		return nil
	}
}

// appendEvent anexa um evento ao feed. Uma falha aqui não desfaz a mutação já
// aplicada no ledger em memória: o erro é registrado e o feed fica para trás
// até a reconciliação.
func (s *RegistryService) appendEvent(event models.Event) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()
	if err := s.store.SaveEvent(event); err != nil {
		log.Printf("ERRO: operação aplicada, mas falha ao gravar evento %s no feed: %v", event.Type, err)
	}
}
