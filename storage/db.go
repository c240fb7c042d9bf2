package storage

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/ferreirogomes/fraciona/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

// DB representa a conexão com o banco de dados PostgreSQL que guarda o
// diretório de ativos e o feed append-only de eventos.
type DB struct {
	*sqlx.DB
}

// NewDB conecta-se ao PostgreSQL e executa as migrações.
func NewDB(dataSourceName string) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("falha ao pingar o banco de dados: %w", err)
	}
	log.Println("Conexão com PostgreSQL estabelecida com sucesso.")

	if err := runMigrations(db.DB); err != nil {
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}

	return &DB{db}, nil
}

// runMigrations executa as migrações usando sql-migrate.
func runMigrations(db *sql.DB) error {
	migrations := &migrate.FileMigrationSource{
		Dir: "./storage/migrations",
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		log.Printf("Aplicadas %d migrações ao banco de dados.", n)
	} else {
		log.Println("Nenhuma migração nova para aplicar.")
	}
	return nil
}

// SaveAsset grava o registro de criação de um ativo. O registro é imutável:
// não há caminho de update.
func (d *DB) SaveAsset(asset models.Asset) error {
	query := `INSERT INTO assets (id, name, symbol, max_supply, price_per_token, payment_ledger_id, admin_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := d.Exec(query, asset.ID, asset.Name, asset.Symbol, asset.MaxSupply,
		asset.PricePerToken, asset.PaymentLedgerID, asset.AdminID, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar ativo: %w", err)
	}
	return nil
}

// GetAsset busca um registro de ativo pelo ID.
func (d *DB) GetAsset(id string) (models.Asset, bool, error) {
	var asset models.Asset
	err := d.Get(&asset, `SELECT * FROM assets WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return models.Asset{}, false, nil
	}
	if err != nil {
		return models.Asset{}, false, fmt.Errorf("falha ao buscar ativo: %w", err)
	}
	return asset, true, nil
}

// ListAssets retorna todos os registros de criação, do mais antigo ao mais novo.
func (d *DB) ListAssets() ([]models.Asset, error) {
	assets := []models.Asset{}
	if err := d.Select(&assets, `SELECT * FROM assets ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("falha ao listar ativos: %w", err)
	}
	return assets, nil
}

// SaveEvent anexa um evento ao feed. A sequência é atribuída pelo banco.
func (d *DB) SaveEvent(event models.Event) error {
	query := `INSERT INTO events (id, asset_id, type, from_holder, to_holder, amount, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := d.Exec(query, event.ID, event.AssetID, event.Type,
		event.FromHolder, event.ToHolder, event.Amount, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar evento: %w", err)
	}
	return nil
}

// EventsAfter retorna até `limit` eventos com seq maior que o cursor, em ordem.
func (d *DB) EventsAfter(seq int64, limit int) ([]models.Event, error) {
	events := []models.Event{}
	err := d.Select(&events, `SELECT * FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar eventos: %w", err)
	}
	return events, nil
}

// EventsByAssetID retorna o histórico completo de um ativo, em ordem de seq.
func (d *DB) EventsByAssetID(assetID string) ([]models.Event, error) {
	events := []models.Event{}
	err := d.Select(&events, `SELECT * FROM events WHERE asset_id = $1 ORDER BY seq`, assetID)
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar eventos do ativo: %w", err)
	}
	return events, nil
}
