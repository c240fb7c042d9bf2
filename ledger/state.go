package ledger

// AssetState representa o estado do ciclo de vida de um ativo tokenizado.
// As transições são sempre em um único sentido: OPEN -> FOR_SALE -> SOLD.
type AssetState int

const (
	StateOpen AssetState = iota // vendendo cotas e coletando votos
	StateForSale                // quórum atingido, aguardando depósito da venda
	StateSold                   // venda concluída, resgates liberados (terminal)
)

// String retorna o nome do estado no formato exibido pela interface.
func (s AssetState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateForSale:
		return "FOR_SALE"
	case StateSold:
		return "SOLD"
	default:
		return "UNKNOWN"
	}
}
