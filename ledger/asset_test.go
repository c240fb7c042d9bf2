package ledger_test

import (
	"math"
	"testing"

	"github.com/ferreirogomes/fraciona/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shares converte cotas inteiras em unidades atômicas.
func shares(n uint64) uint64 {
	return n * ledger.AtomicPerShare
}

// newTestAsset cria um token de pagamento em memória e um ativo vinculado a
// ele, com os valores padrão dos testes (maxSupply 20, preço 10).
func newTestAsset() (*ledger.AssetLedger, *ledger.TokenLedger) {
	payment := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	asset := ledger.NewAssetLedger("asset-1", "Imóvel Centro 01", "IMV01",
		shares(20), 10, "admin-1", payment, nil)
	return asset, payment
}

// fundAndApprove abastece o titular pelo faucet e aprova a custódia do ativo.
func fundAndApprove(t *testing.T, payment *ledger.TokenLedger, holder, custody string, amount uint64) {
	t.Helper()
	_, err := payment.Faucet(holder)
	require.NoError(t, err)
	require.NoError(t, payment.Approve(holder, custody, amount))
}

func TestBuyMintsSharesAndPullsPayment(t *testing.T) {
	asset, payment := newTestAsset()
	cost := shares(10) * 10 // 100 tokens de pagamento
	fundAndApprove(t, payment, "user-1", asset.ID(), cost)

	paid, err := asset.Buy("user-1", shares(10))

	require.NoError(t, err)
	assert.Equal(t, cost, paid)
	assert.Equal(t, shares(10), asset.BalanceOf("user-1"))
	assert.Equal(t, shares(10), asset.TotalSupply())
	assert.Equal(t, ledger.FaucetGrant-cost, payment.BalanceOf("user-1"))
	assert.Equal(t, cost, payment.BalanceOf(asset.ID()))
	assert.Equal(t, uint64(0), payment.Allowance("user-1", asset.ID()))
}

func TestBuyRejectsInvalidParameters(t *testing.T) {
	asset, _ := newTestAsset()

	_, err := asset.Buy("user-1", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)

	_, err = asset.Buy("", shares(1))
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestBuyUpToCapSucceedsOneUnitBeyondFails(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(20)*10+10)

	_, err := asset.Buy("user-1", shares(20))
	require.NoError(t, err)
	assert.Equal(t, shares(20), asset.TotalSupply())

	// Uma única unidade atômica além do teto é rejeitada sem mutação.
	_, err = asset.Buy("user-1", 1)
	assert.ErrorIs(t, err, ledger.ErrSupplyCapExceeded)
	assert.Equal(t, shares(20), asset.TotalSupply())
	assert.Equal(t, shares(20), asset.BalanceOf("user-1"))
}

func TestBuyRejectsAmountsBeyondPersistableRange(t *testing.T) {
	payment := ledger.NewTokenLedger("vndh", "VND Hust", "VNDH", nil)
	asset := ledger.NewAssetLedger("asset-1", "Imóvel Centro 01", "IMV01",
		math.MaxUint64, 1, "admin-1", payment, nil)

	// O feed grava valores como int64; acima disso a operação é rejeitada
	// antes de qualquer mutação, em vez de gravar um valor negativo.
	_, err := asset.Buy("user-1", uint64(math.MaxInt64)+1)
	assert.ErrorIs(t, err, ledger.ErrOverflow)
	assert.Equal(t, uint64(0), asset.TotalSupply())
	assert.Equal(t, uint64(0), asset.BalanceOf("user-1"))
}

func TestBuyWithoutApprovalFailsWithoutMutation(t *testing.T) {
	asset, payment := newTestAsset()
	_, err := payment.Faucet("user-1")
	require.NoError(t, err)

	_, err = asset.Buy("user-1", shares(10))

	assert.ErrorIs(t, err, ledger.ErrPaymentTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	assert.Equal(t, uint64(0), asset.TotalSupply())
	assert.Equal(t, uint64(0), asset.BalanceOf("user-1"))
	assert.Equal(t, ledger.FaucetGrant, payment.BalanceOf("user-1"))
}

func TestBuySupplyAlwaysEqualsSumOfPurchases(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(20)*10)
	fundAndApprove(t, payment, "user-2", asset.ID(), shares(20)*10)

	var total uint64
	for _, purchase := range []struct {
		holder string
		amount uint64
	}{
		{"user-1", shares(3)},
		{"user-2", shares(5)},
		{"user-1", shares(2)},
	} {
		_, err := asset.Buy(purchase.holder, purchase.amount)
		require.NoError(t, err)
		total += purchase.amount
		assert.Equal(t, total, asset.TotalSupply())
	}
	assert.Equal(t, asset.TotalSupply(), asset.BalanceOf("user-1")+asset.BalanceOf("user-2"))
}

func TestVoteQuorumRequiresFullSupply(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(10)*10)
	fundAndApprove(t, payment, "user-2", asset.ID(), shares(1)*10)
	_, err := asset.Buy("user-1", shares(10))
	require.NoError(t, err)
	_, err = asset.Buy("user-2", shares(1))
	require.NoError(t, err)

	// 10 de 11 cotas ainda não alcançam o quórum.
	approved, weight, err := asset.VoteForSale("user-1")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, shares(10), weight)
	assert.Equal(t, ledger.StateOpen, asset.CurrentState())
	assert.True(t, asset.HasVoted("user-1"))

	// A última cota completa a oferta e aprova a venda na mesma chamada.
	approved, weight, err = asset.VoteForSale("user-2")
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, shares(1), weight)
	assert.Equal(t, ledger.StateForSale, asset.CurrentState())
	assert.Equal(t, shares(11), asset.VotesForSale())
}

func TestVoteTwiceIsRejected(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(5)*10)
	_, err := asset.Buy("user-1", shares(5))
	require.NoError(t, err)
	fundAndApprove(t, payment, "user-2", asset.ID(), shares(5)*10)
	_, err = asset.Buy("user-2", shares(5))
	require.NoError(t, err)

	_, _, err = asset.VoteForSale("user-1")
	require.NoError(t, err)
	votes := asset.VotesForSale()

	_, _, err = asset.VoteForSale("user-1")
	assert.ErrorIs(t, err, ledger.ErrDuplicateVote)
	// O peso acumulado nunca diminui nem é contado duas vezes.
	assert.Equal(t, votes, asset.VotesForSale())
}

func TestVoteWithZeroBalanceCountsNothingButMarksVoter(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(5)*10)
	_, err := asset.Buy("user-1", shares(5))
	require.NoError(t, err)

	approved, weight, err := asset.VoteForSale("espectador")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, uint64(0), weight)
	assert.Equal(t, uint64(0), asset.VotesForSale())
	assert.True(t, asset.HasVoted("espectador"))

	_, _, err = asset.VoteForSale("espectador")
	assert.ErrorIs(t, err, ledger.ErrDuplicateVote)
}

func TestVoteOnEmptyAssetNeverReachesQuorum(t *testing.T) {
	asset, _ := newTestAsset()

	approved, _, err := asset.VoteForSale("user-1")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, ledger.StateOpen, asset.CurrentState())
}

func TestVoteAfterSaleApprovedFails(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(5)*10)
	_, err := asset.Buy("user-1", shares(5))
	require.NoError(t, err)
	_, _, err = asset.VoteForSale("user-1")
	require.NoError(t, err)
	require.Equal(t, ledger.StateForSale, asset.CurrentState())

	_, _, err = asset.VoteForSale("user-2")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestBuyAfterSaleApprovedFails(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(10)*10)
	_, err := asset.Buy("user-1", shares(5))
	require.NoError(t, err)
	_, _, err = asset.VoteForSale("user-1")
	require.NoError(t, err)

	_, err = asset.Buy("user-1", shares(1))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	assert.Equal(t, shares(5), asset.TotalSupply())
}

// approveSale leva o ativo até FOR_SALE com as compras informadas.
func approveSale(t *testing.T, asset *ledger.AssetLedger, payment *ledger.TokenLedger, purchases map[string]uint64) {
	t.Helper()
	for holder, amount := range purchases {
		fundAndApprove(t, payment, holder, asset.ID(), amount*10)
		_, err := asset.Buy(holder, amount)
		require.NoError(t, err)
	}
	for holder := range purchases {
		_, _, err := asset.VoteForSale(holder)
		require.NoError(t, err)
	}
	require.Equal(t, ledger.StateForSale, asset.CurrentState())
}

func TestDistributeProceedsOnlyByAdmin(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{"user-1": shares(10)})
	fundAndApprove(t, payment, "intruso", asset.ID(), shares(200))

	_, err := asset.DistributeProceeds("intruso", shares(200))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.Equal(t, ledger.StateForSale, asset.CurrentState())
}

func TestDistributeProceedsBeforeQuorumFails(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "admin-1", asset.ID(), shares(200))

	_, err := asset.DistributeProceeds("admin-1", shares(200))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestDistributeProceedsRejectsZeroAmount(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{"user-1": shares(10)})

	_, err := asset.DistributeProceeds("admin-1", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
	assert.Equal(t, ledger.StateForSale, asset.CurrentState())
}

func TestDistributeProceedsIsSingleShot(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{"user-1": shares(10)})
	fundAndApprove(t, payment, "admin-1", asset.ID(), shares(400))

	_, err := asset.DistributeProceeds("admin-1", shares(200))
	require.NoError(t, err)
	require.Equal(t, ledger.StateSold, asset.CurrentState())

	// Segunda distribuição falha em qualquer estado que não FOR_SALE.
	_, err = asset.DistributeProceeds("admin-1", shares(200))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestDistributeProceedsRoundsDownAndRetainsRemainder(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{
		"user-1": shares(10),
		"user-2": shares(1),
	})
	total := shares(200)
	fundAndApprove(t, payment, "admin-1", asset.ID(), total)

	redeemPrice, err := asset.DistributeProceeds("admin-1", total)

	require.NoError(t, err)
	// 200e9 / 11e9 = 18 com divisão inteira; o resto fica retido.
	assert.Equal(t, uint64(18), redeemPrice)
	assert.Equal(t, uint64(18), asset.FinalRedeemPrice())
	expectedRetained := total - 18*shares(11)
	assert.Equal(t, expectedRetained, asset.Retained())
}

func TestRedeemPaysProRataAndBurns(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{
		"user-1": shares(10),
		"user-2": shares(1),
	})
	fundAndApprove(t, payment, "admin-1", asset.ID(), shares(200))
	_, err := asset.DistributeProceeds("admin-1", shares(200))
	require.NoError(t, err)

	before := payment.BalanceOf("user-1")
	payout, burned, err := asset.Redeem("user-1")

	require.NoError(t, err)
	// 10 cotas × preço 18 = 180 tokens inteiros.
	assert.Equal(t, shares(180), payout)
	assert.Equal(t, shares(10), burned)
	assert.Equal(t, before+shares(180), payment.BalanceOf("user-1"))
	assert.Equal(t, uint64(0), asset.BalanceOf("user-1"))
	// totalSupply congela na oferta histórica usada no preço de resgate.
	assert.Equal(t, shares(11), asset.TotalSupply())
}

func TestRedeemTwiceFailsWithNothingToRedeem(t *testing.T) {
	asset, payment := newTestAsset()
	approveSale(t, asset, payment, map[string]uint64{"user-1": shares(10)})
	fundAndApprove(t, payment, "admin-1", asset.ID(), shares(200))
	_, err := asset.DistributeProceeds("admin-1", shares(200))
	require.NoError(t, err)

	_, _, err = asset.Redeem("user-1")
	require.NoError(t, err)

	before := payment.BalanceOf("user-1")
	_, _, err = asset.Redeem("user-1")
	assert.ErrorIs(t, err, ledger.ErrNothingToRedeem)
	assert.Equal(t, before, payment.BalanceOf("user-1"))
}

func TestRedeemBeforeSoldFails(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(10)*10)
	_, err := asset.Buy("user-1", shares(10))
	require.NoError(t, err)

	_, _, err = asset.Redeem("user-1")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

// TestFullLifecycle percorre o ciclo completo de ponta a ponta:
// maxSupply 20, preço 10, compras de 10 e 1, ambos votam, distribuição de
// 200 fixa o preço de resgate em 18 e o primeiro comprador recebe 180.
func TestFullLifecycle(t *testing.T) {
	asset, payment := newTestAsset()

	fundAndApprove(t, payment, "user-1", asset.ID(), shares(10)*10)
	_, err := asset.Buy("user-1", shares(10))
	require.NoError(t, err)
	fundAndApprove(t, payment, "user-2", asset.ID(), shares(1)*10)
	_, err = asset.Buy("user-2", shares(1))
	require.NoError(t, err)
	require.Equal(t, shares(11), asset.TotalSupply())

	_, _, err = asset.VoteForSale("user-1")
	require.NoError(t, err)
	_, _, err = asset.VoteForSale("user-2")
	require.NoError(t, err)
	require.Equal(t, ledger.StateForSale, asset.CurrentState())

	fundAndApprove(t, payment, "admin-1", asset.ID(), shares(200))
	redeemPrice, err := asset.DistributeProceeds("admin-1", shares(200))
	require.NoError(t, err)
	assert.Equal(t, uint64(18), redeemPrice)
	assert.Equal(t, ledger.StateSold, asset.CurrentState())

	before := payment.BalanceOf("user-1")
	payout, _, err := asset.Redeem("user-1")
	require.NoError(t, err)
	assert.Equal(t, shares(180), payout)
	assert.Equal(t, before+shares(180), payment.BalanceOf("user-1"))
	assert.Equal(t, uint64(0), asset.BalanceOf("user-1"))
}

func TestSnapshotReflectsState(t *testing.T) {
	asset, payment := newTestAsset()
	fundAndApprove(t, payment, "user-1", asset.ID(), shares(10)*10)
	_, err := asset.Buy("user-1", shares(10))
	require.NoError(t, err)

	snapshot := asset.Snapshot()

	assert.Equal(t, "asset-1", snapshot.ID)
	assert.Equal(t, "IMV01", snapshot.Symbol)
	assert.Equal(t, "OPEN", snapshot.State)
	assert.Equal(t, shares(20), snapshot.MaxSupply)
	assert.Equal(t, uint64(10), snapshot.PricePerToken)
	assert.Equal(t, shares(10), snapshot.TotalSupply)
}

func TestRestoreRebuildsSameStateAsLiveRun(t *testing.T) {
	// Executa o ciclo ao vivo em um ativo e reidrata um segundo ativo só com
	// as variantes Restore*; os dois devem terminar idênticos.
	live, payment := newTestAsset()
	approveSale(t, live, payment, map[string]uint64{
		"user-1": shares(10),
		"user-2": shares(1),
	})
	fundAndApprove(t, payment, "admin-1", live.ID(), shares(200))
	_, err := live.DistributeProceeds("admin-1", shares(200))
	require.NoError(t, err)
	_, _, err = live.Redeem("user-1")
	require.NoError(t, err)

	restored := ledger.NewAssetLedger("asset-1", "Imóvel Centro 01", "IMV01",
		shares(20), 10, "admin-1", payment, nil)
	require.NoError(t, restored.RestorePurchase("user-1", shares(10)))
	require.NoError(t, restored.RestorePurchase("user-2", shares(1)))
	require.NoError(t, restored.RestoreVote("user-1"))
	require.NoError(t, restored.RestoreVote("user-2"))
	require.NoError(t, restored.RestoreDistribution(shares(200)))
	require.NoError(t, restored.RestoreRedemption("user-1"))

	assert.Equal(t, live.Snapshot(), restored.Snapshot())
	assert.Equal(t, live.BalanceOf("user-2"), restored.BalanceOf("user-2"))
}
