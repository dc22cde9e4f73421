package token2022

import (
	"encoding/binary"
	"fmt"
)

// Token-2022 account layouts. A base token account is 165 bytes; extended
// accounts append an account-type byte at offset 165 followed by TLV entries.
const (
	baseAccountLen  = 165
	accountTypeMint = 1
	accountTypeAcct = 2
	tlvOffset       = 166
)

// TLV extension types we care about.
const (
	extTransferFeeConfig = 1 // on the mint
	extTransferFeeAmount = 2 // on token accounts
)

// WithheldFromAccount extracts the transfer-fee withheld amount from a
// Token-2022 token account's raw data. Returns (0, false) when the account
// carries no TransferFeeAmount extension.
func WithheldFromAccount(data []byte) (uint64, bool, error) {
	if len(data) <= baseAccountLen {
		return 0, false, nil // legacy-size account, no extensions
	}
	if data[baseAccountLen] != accountTypeAcct {
		return 0, false, fmt.Errorf("not a token account (type %d)", data[baseAccountLen])
	}

	ext, ok, err := findExtension(data[tlvOffset:], extTransferFeeAmount)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(ext) < 8 {
		return 0, false, fmt.Errorf("transfer fee amount extension too short: %d bytes", len(ext))
	}
	return binary.LittleEndian.Uint64(ext[:8]), true, nil
}

// WithheldFromMint extracts the mint-level withheld amount from a Token-2022
// mint's TransferFeeConfig extension.
//
// TransferFeeConfig layout:
//
//	transfer_fee_config_authority  COption-less Pubkey  32
//	withdraw_withheld_authority    Pubkey               32
//	withheld_amount                u64                   8
//	older_transfer_fee / newer_transfer_fee follow
func WithheldFromMint(data []byte) (uint64, bool, error) {
	if len(data) <= baseAccountLen {
		return 0, false, nil
	}
	if data[baseAccountLen] != accountTypeMint {
		return 0, false, fmt.Errorf("not a mint account (type %d)", data[baseAccountLen])
	}

	ext, ok, err := findExtension(data[tlvOffset:], extTransferFeeConfig)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(ext) < 72 {
		return 0, false, fmt.Errorf("transfer fee config extension too short: %d bytes", len(ext))
	}
	return binary.LittleEndian.Uint64(ext[64:72]), true, nil
}

// findExtension walks the TLV region looking for the given extension type.
func findExtension(tlv []byte, want uint16) ([]byte, bool, error) {
	i := 0
	for i+4 <= len(tlv) {
		extType := binary.LittleEndian.Uint16(tlv[i : i+2])
		extLen := int(binary.LittleEndian.Uint16(tlv[i+2 : i+4]))
		i += 4

		if i+extLen > len(tlv) {
			return nil, false, fmt.Errorf("truncated extension %d: need %d bytes, have %d", extType, extLen, len(tlv)-i)
		}

		if extType == want {
			return tlv[i : i+extLen], true, nil
		}
		if extType == 0 { // uninitialized padding terminates the list
			break
		}
		i += extLen
	}
	return nil, false, nil
}
