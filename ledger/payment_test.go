package ledger_test

import (
	"testing"

	"github.com/ferreirogomes/fraciona/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaucetGrantsFixedAmount(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)

	balance, err := token.Faucet("user-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.FaucetGrant, balance)

	balance, err = token.Faucet("user-1")
	require.NoError(t, err)
	assert.Equal(t, 2*ledger.FaucetGrant, balance)
	assert.Equal(t, 2*ledger.FaucetGrant, token.BalanceOf("user-1"))
}

func TestFaucetRejectsEmptyHolder(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)

	_, err := token.Faucet("")
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestApproveReplacesAllowance(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)

	require.NoError(t, token.Approve("user-1", "custodia", 100))
	assert.Equal(t, uint64(100), token.Allowance("user-1", "custodia"))

	// Approve substitui, não acumula.
	require.NoError(t, token.Approve("user-1", "custodia", 40))
	assert.Equal(t, uint64(40), token.Allowance("user-1", "custodia"))
}

func TestTransferFromDebitsAllowanceAndBalance(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	_, err := token.Faucet("user-1")
	require.NoError(t, err)
	require.NoError(t, token.Approve("user-1", "custodia", 300))

	require.NoError(t, token.TransferFrom("custodia", "user-1", "custodia", 200))

	assert.Equal(t, ledger.FaucetGrant-200, token.BalanceOf("user-1"))
	assert.Equal(t, uint64(200), token.BalanceOf("custodia"))
	assert.Equal(t, uint64(100), token.Allowance("user-1", "custodia"))
}

func TestTransferFromWithoutAllowanceFails(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	_, err := token.Faucet("user-1")
	require.NoError(t, err)

	err = token.TransferFrom("custodia", "user-1", "custodia", 1)

	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	assert.Equal(t, ledger.FaucetGrant, token.BalanceOf("user-1"))
}

func TestTransferFromWithInsufficientBalanceFails(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	require.NoError(t, token.Approve("user-1", "custodia", 500))

	err := token.TransferFrom("custodia", "user-1", "custodia", 500)

	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	// A allowance também fica intacta: tudo-ou-nada.
	assert.Equal(t, uint64(500), token.Allowance("user-1", "custodia"))
	assert.Equal(t, uint64(0), token.BalanceOf("custodia"))
}

func TestTransferMovesOwnFunds(t *testing.T) {
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	_, err := token.Faucet("custodia")
	require.NoError(t, err)

	require.NoError(t, token.Transfer("custodia", "user-1", 250))
	assert.Equal(t, uint64(250), token.BalanceOf("user-1"))
	assert.Equal(t, ledger.FaucetGrant-250, token.BalanceOf("custodia"))

	err = token.Transfer("custodia", "user-1", ledger.FaucetGrant)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestRestoreTransferReappliesMovementsWithoutSink(t *testing.T) {
	var emitted int
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", func(from, to string, amount uint64) {
		emitted++
	})

	// Emissão do faucet, pagamento à custódia e payout de volta.
	require.NoError(t, token.RestoreTransfer("", "user-1", ledger.FaucetGrant))
	require.NoError(t, token.RestoreTransfer("user-1", "custodia", 200))
	require.NoError(t, token.RestoreTransfer("custodia", "user-1", 180))

	assert.Equal(t, ledger.FaucetGrant-20, token.BalanceOf("user-1"))
	assert.Equal(t, uint64(20), token.BalanceOf("custodia"))
	// Reaplicar não reemite no sink: os eventos já estão no feed.
	assert.Equal(t, 0, emitted)

	err := token.RestoreTransfer("custodia", "user-1", 1000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.ErrorIs(t, token.RestoreTransfer("", "", 10), ledger.ErrInvalidParameters)
}

func TestSinkReceivesEveryBalanceMovement(t *testing.T) {
	type movement struct {
		from, to string
		amount   uint64
	}
	var seen []movement
	token := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", func(from, to string, amount uint64) {
		seen = append(seen, movement{from, to, amount})
	})

	_, err := token.Faucet("user-1")
	require.NoError(t, err)
	require.NoError(t, token.Approve("user-1", "custodia", 100))
	require.NoError(t, token.TransferFrom("custodia", "user-1", "custodia", 100))
	require.NoError(t, token.Transfer("custodia", "user-2", 60))

	require.Len(t, seen, 3)
	// Emissão do faucet aparece com origem vazia.
	assert.Equal(t, movement{"", "user-1", ledger.FaucetGrant}, seen[0])
	assert.Equal(t, movement{"user-1", "custodia", 100}, seen[1])
	assert.Equal(t, movement{"custodia", "user-2", 60}, seen[2])
}
