package token2022

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// NewSystemTransferIx builds a SystemProgram transfer instruction.
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	// SystemProgram instruction layout:
	// u32: instruction index (2 = Transfer)
	// u64: lamports
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: to, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}

// NewSyncNativeIx builds a SyncNative instruction for a wSOL account under
// the given token program.
func NewSyncNativeIx(nativeAccount, tokenProgram solana.PublicKey) solana.Instruction {
	// Token instruction index 17 = SyncNative
	data := []byte{17}
	accounts := []*solana.AccountMeta{
		{PublicKey: nativeAccount, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(tokenProgram, accounts, data)
}

// NewCloseAccountIx builds a CloseAccount instruction under the given token
// program. Closing a wSOL account unwraps its lamports to the destination.
func NewCloseAccountIx(account, destination, owner, tokenProgram solana.PublicKey) solana.Instruction {
	// Token instruction index 9 = CloseAccount
	data := []byte{9}
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(tokenProgram, accounts, data)
}
