package models

import "time"

// Tipos de evento do feed de descoberta.
const (
	EventAssetCreated    = "asset_created"    // criação de ativo pelo registro
	EventPurchase        = "purchase"         // emissão de cotas (from vazio)
	EventVote            = "vote"             // voto pela venda (amount = peso)
	EventDistribution    = "distribution"     // depósito do valor da venda
	EventRedemption      = "redemption"       // queima de cotas no resgate (to vazio)
	EventPaymentTransfer = "payment_transfer" // movimentação no token de pagamento
)

// Event é uma linha do feed append-only que alimenta a camada de descoberta.
// A sequência (seq) é o cursor de replay: reaplicar os eventos de um ativo em
// ordem reconstrói seus saldos e seu estado sem consultar os mapas internos.
type Event struct {
	Seq        int64     `db:"seq" json:"seq"`
	ID         string    `db:"id" json:"id"`
	AssetID    string    `db:"asset_id" json:"asset_id"` // id do ledger dono do evento (ativo ou token de pagamento)
	Type       string    `db:"type" json:"type"`
	FromHolder string    `db:"from_holder" json:"from_holder"` // vazio = emissão
	ToHolder   string    `db:"to_holder" json:"to_holder"`     // vazio = queima
	Amount     int64     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
