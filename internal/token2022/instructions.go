package token2022

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/constants"
)

var (
	ProgramID                = solana.MustPublicKeyFromBase58(constants.Token2022ProgramID)
	legacyTokenProgramID     = solana.MustPublicKeyFromBase58(constants.TokenProgramID)
	associatedTokenProgramID = solana.MustPublicKeyFromBase58(constants.AssociatedTokenProgramID)
)

// Transfer-fee extension instruction encoding: byte 0 is the extension
// discriminator (26), byte 1 selects the sub-instruction.
const (
	ixTransferFeeExtension = 26

	subWithdrawFromMint     = 2
	subWithdrawFromAccounts = 3
	subHarvestToMint        = 4
)

// NewWithdrawWithheldFromAccountsIx moves withheld fees out of up to
// MaxHarvestAccountsPerTx holder token accounts into the destination account.
//
// Accounts:
//  0. mint (writable)
//  1. destination token account (writable)
//  2. withdraw withheld authority (signer)
//  3..N source token accounts (writable)
func NewWithdrawWithheldFromAccountsIx(
	mint solana.PublicKey,
	destination solana.PublicKey,
	authority solana.PublicKey,
	sources []solana.PublicKey,
) (solana.Instruction, error) {

	if len(sources) == 0 {
		return nil, fmt.Errorf("no source accounts")
	}
	if len(sources) > constants.MaxHarvestAccountsPerTx {
		return nil, fmt.Errorf("too many source accounts: %d > %d", len(sources), constants.MaxHarvestAccountsPerTx)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsWritable: true, IsSigner: false},
		{PublicKey: destination, IsWritable: true, IsSigner: false},
		{PublicKey: authority, IsWritable: false, IsSigner: true},
	}
	for _, src := range sources {
		accounts = append(accounts, &solana.AccountMeta{PublicKey: src, IsWritable: true, IsSigner: false})
	}

	data := []byte{ixTransferFeeExtension, subWithdrawFromAccounts, byte(len(sources))}

	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewWithdrawWithheldFromMintIx moves the mint-level withheld amount into the
// destination token account.
func NewWithdrawWithheldFromMintIx(
	mint solana.PublicKey,
	destination solana.PublicKey,
	authority solana.PublicKey,
) solana.Instruction {

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsWritable: true, IsSigner: false},
		{PublicKey: destination, IsWritable: true, IsSigner: false},
		{PublicKey: authority, IsWritable: false, IsSigner: true},
	}

	data := []byte{ixTransferFeeExtension, subWithdrawFromMint}

	return solana.NewInstruction(ProgramID, accounts, data)
}

// NewHarvestToMintIx is the permissionless variant that sweeps withheld fees
// from holder accounts back onto the mint.
func NewHarvestToMintIx(mint solana.PublicKey, sources []solana.PublicKey) (solana.Instruction, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no source accounts")
	}
	if len(sources) > constants.MaxHarvestAccountsPerTx {
		return nil, fmt.Errorf("too many source accounts: %d > %d", len(sources), constants.MaxHarvestAccountsPerTx)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsWritable: true, IsSigner: false},
	}
	for _, src := range sources {
		accounts = append(accounts, &solana.AccountMeta{PublicKey: src, IsWritable: true, IsSigner: false})
	}

	data := []byte{ixTransferFeeExtension, subHarvestToMint}

	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint) under the
// given token program. The token program id is part of the seeds: a fee-token
// ATA derived with the legacy program id is a different, wrong address.
func FindAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			tokenProgram.Bytes(),
			mint.Bytes(),
		},
		associatedTokenProgramID,
	)
}

// NewCreateAssociatedTokenAccountIx builds an ATA create instruction for the
// given token program (legacy or Token-2022).
func NewCreateAssociatedTokenAccountIx(
	payer solana.PublicKey,
	ata solana.PublicKey,
	owner solana.PublicKey,
	mint solana.PublicKey,
	tokenProgram solana.PublicKey,
) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgram, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}

	// ATA create instruction data is empty.
	return solana.NewInstruction(associatedTokenProgramID, accounts, nil)
}

// LegacyTokenProgramID exposes the settlement-side token program.
func LegacyTokenProgramID() solana.PublicKey { return legacyTokenProgramID }
