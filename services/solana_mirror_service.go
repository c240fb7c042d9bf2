package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ferreirogomes/fraciona/ledger"
	"github.com/ferreirogomes/fraciona/models"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// Tamanho em bytes de uma conta de Mint SPL.
const mintAccountSize = 82

// SolanaMirrorService espelha o ledger de cotas na Solana: um Mint SPL por
// ativo criado, MintTo na custódia a cada compra e Burn a cada resgate. O
// FeePayer paga e assina tudo. É um canal lateral puro: o núcleo continua
// correto mesmo com o espelho desligado ou falhando.
type SolanaMirrorService struct {
	RPCClient *rpc.Client
	FeePayer  solana.PrivateKey

	mu    sync.RWMutex
	mints map[string]solana.PublicKey // assetID -> endereço do Mint
}

// NewSolanaMirrorService cria o espelho com o RPC e a chave do FeePayer.
func NewSolanaMirrorService(rpcEndpoint, feePayerKeyBase58 string) (*SolanaMirrorService, error) {
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar chave privada do Fee Payer: %w", err)
	}
	return &SolanaMirrorService{
		RPCClient: rpc.New(rpcEndpoint),
		FeePayer:  feePayer,
		mints:     make(map[string]solana.PublicKey),
	}, nil
}

// MirrorCreation cria o Mint SPL do ativo e a ATA de custódia do FeePayer.
func (s *SolanaMirrorService) MirrorCreation(asset models.Asset) error {
	ctx := context.Background()

	mint := solana.NewWallet()
	rent, err := s.RPCClient.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("falha ao obter rent mínimo: %w", err)
	}

	createMint := system.NewCreateAccountInstruction(
		rent,
		mintAccountSize,
		token.ProgramID,
		s.FeePayer.PublicKey(),
		mint.PublicKey(),
	).Build()

	initMint := token.NewInitializeMintInstruction(
		ledger.Decimals,
		s.FeePayer.PublicKey(), // autoridade de emissão
		s.FeePayer.PublicKey(), // autoridade de congelamento
		mint.PublicKey(),
		solana.SysVarRentPubkey,
	).Build()

	// ATA de custódia onde as cotas espelhadas ficam guardadas.
	createATA := associatedtokenaccount.NewCreateInstruction(
		s.FeePayer.PublicKey(),
		s.FeePayer.PublicKey(),
		mint.PublicKey(),
	).Build()

	if err := s.sendInstructions(ctx, []solana.Instruction{createMint, initMint, createATA}, mint.PrivateKey); err != nil {
		return fmt.Errorf("falha ao criar Mint do ativo %s: %w", asset.ID, err)
	}

	s.mu.Lock()
	s.mints[asset.ID] = mint.PublicKey()
	s.mu.Unlock()

	log.Printf("Mint SPL %s criado para o ativo %s (%s)", mint.PublicKey(), asset.Symbol, asset.ID)
	return nil
}

// MirrorPurchase emite `amount` unidades do Mint do ativo na ATA de custódia.
func (s *SolanaMirrorService) MirrorPurchase(assetID, holder string, amount uint64) error {
	mint, ok := s.mintOf(assetID)
	if !ok {
		return fmt.Errorf("ativo %s não possui Mint espelhado", assetID)
	}
	custody, _, err := solana.FindAssociatedTokenAddress(s.FeePayer.PublicKey(), mint)
	if err != nil {
		return fmt.Errorf("falha ao derivar ATA de custódia: %w", err)
	}

	mintTo := token.NewMintToInstruction(
		amount,
		mint,
		custody,
		s.FeePayer.PublicKey(),
		nil,
	).Build()

	if err := s.sendInstructions(context.Background(), []solana.Instruction{mintTo}, nil); err != nil {
		return fmt.Errorf("falha ao espelhar compra de %s: %w", holder, err)
	}
	return nil
}

// MirrorRedemption queima as unidades resgatadas na ATA de custódia.
func (s *SolanaMirrorService) MirrorRedemption(assetID, holder string, amount uint64) error {
	mint, ok := s.mintOf(assetID)
	if !ok {
		return fmt.Errorf("ativo %s não possui Mint espelhado", assetID)
	}
	custody, _, err := solana.FindAssociatedTokenAddress(s.FeePayer.PublicKey(), mint)
	if err != nil {
		return fmt.Errorf("falha ao derivar ATA de custódia: %w", err)
	}

	burn := token.NewBurnInstruction(
		amount,
		custody,
		mint,
		s.FeePayer.PublicKey(),
		nil,
	).Build()

	if err := s.sendInstructions(context.Background(), []solana.Instruction{burn}, nil); err != nil {
		return fmt.Errorf("falha ao espelhar resgate de %s: %w", holder, err)
	}
	return nil
}

func (s *SolanaMirrorService) mintOf(assetID string) (solana.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mint, ok := s.mints[assetID]
	return mint, ok
}

// sendInstructions monta, assina e envia uma transação paga pelo FeePayer.
// `extraSigner` cobre a chave da nova conta de Mint na criação.
func (s *SolanaMirrorService) sendInstructions(ctx context.Context, instructions []solana.Instruction, extraSigner solana.PrivateKey) error {
	resp, err := s.RPCClient.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		resp.Value.Blockhash,
		solana.TransactionPayer(s.FeePayer.PublicKey()),
	)
	if err != nil {
		return fmt.Errorf("falha ao criar transação: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.FeePayer.PublicKey()) {
			return &s.FeePayer
		}
		if extraSigner != nil && key.Equals(extraSigner.PublicKey()) {
			return &extraSigner
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("falha ao assinar transação: %w", err)
	}

	txID, err := s.RPCClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("falha ao enviar transação: %w", err)
	}
	log.Printf("Transação de espelhamento enviada: %s", txID)
	return nil
}
