package ledger

import "math"

// Valores são inteiros de ponto fixo em unidades atômicas, com 9 casas
// decimais (mesma escala das contas SPL). 1 cota inteira = 1e9 unidades.
// O feed de eventos persiste valores como int64, então o domínio útil vai
// até math.MaxInt64; qualquer resultado acima disso é rejeitado como estouro
// para o feed nunca gravar um valor negativo.
const (
	Decimals = 9

	// AtomicPerShare converte cotas inteiras em unidades atômicas.
	AtomicPerShare uint64 = 1_000_000_000
)

// addChecked soma dois valores e falha em caso de estouro.
func addChecked(a, b uint64) (uint64, error) {
	c := a + b
	if c < a || c > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return c, nil
}

// mulChecked multiplica dois valores e falha em caso de estouro.
func mulChecked(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/a != b || c > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return c, nil
}
