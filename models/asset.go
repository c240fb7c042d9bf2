package models

import "time"

// Asset é o registro imutável de criação de um ativo tokenizado, gravado pelo
// registro no momento da criação e nunca alterado depois. Valores em unidades
// atômicas (9 casas decimais).
type Asset struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`     // Ex: "Imóvel Centro 01"
	Symbol          string    `db:"symbol" json:"symbol"` // Ex: "IMV01"
	MaxSupply       int64     `db:"max_supply" json:"max_supply"`
	PricePerToken   int64     `db:"price_per_token" json:"price_per_token"`
	PaymentLedgerID string    `db:"payment_ledger_id" json:"payment_ledger_id"` // token de pagamento vinculado
	AdminID         string    `db:"admin_id" json:"admin_id"`                   // único autorizado a distribuir a venda
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
