package txn

import (
	"fmt"

	"github.com/txlogd/txlog/certhash"
	"github.com/txlogd/txlog/value"
)

// Mint credits `to` with `amount`; it forbids a `from` field.
type Mint struct {
	To              string
	Amount          uint64
	Memo            string
	UserTimestampNs *uint64
}

// Transfer moves `amount` from `from` to `to`.
type Transfer struct {
	From            string
	To              string
	Amount          uint64
	Memo            string
	UserTimestampNs *uint64
}

// Burn removes `amount` from `from`.
type Burn struct {
	From            string
	Amount          uint64
	Memo            string
	UserTimestampNs *uint64
}

// Approve authorizes `spender` to move up to `amount` from `from`.
type Approve struct {
	From            string
	Spender         string
	Amount          uint64
	Memo            string
	UserTimestampNs *uint64
}

// NFTMint assigns token TokenID to `to`.
type NFTMint struct {
	To              string
	TokenID         uint64
	Metadata        string
	UserTimestampNs *uint64
}

// NFTTransfer moves token TokenID from `from` to `to`.
type NFTTransfer struct {
	From            string
	To              string
	TokenID         uint64
	UserTimestampNs *uint64
}

func (m *Mint) ValidateFields() error {
	if m.To == "" {
		return fmt.Errorf("mint: %w: missing to", ErrInvalidTransaction)
	}
	if m.Amount == 0 {
		return fmt.Errorf("mint: %w: amount must be positive", ErrInvalidTransaction)
	}
	return nil
}

func (m *Mint) Timestamp() (uint64, bool) {
	if m.UserTimestampNs == nil {
		return 0, false
	}
	return *m.UserTimestampNs, true
}

func (m *Mint) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":     value.Text("mint"),
		"to":     value.Text(m.To),
		"amount": value.NatFromUint64(m.Amount),
		"memo":   value.Text(m.Memo),
	}))
}

func (m *Mint) BlockType() string { return "1mint" }

func (m *Mint) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"to":     value.Text(m.To),
		"amount": value.NatFromUint64(m.Amount),
		"memo":   value.Text(m.Memo),
	})
}

func (t *Transfer) ValidateFields() error {
	if t.From == "" {
		return fmt.Errorf("transfer: %w: missing from", ErrInvalidTransaction)
	}
	if t.To == "" {
		return fmt.Errorf("transfer: %w: missing to", ErrInvalidTransaction)
	}
	if t.Amount == 0 {
		return fmt.Errorf("transfer: %w: amount must be positive", ErrInvalidTransaction)
	}
	return nil
}

func (t *Transfer) Timestamp() (uint64, bool) {
	if t.UserTimestampNs == nil {
		return 0, false
	}
	return *t.UserTimestampNs, true
}

func (t *Transfer) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":     value.Text("xfer"),
		"from":   value.Text(t.From),
		"to":     value.Text(t.To),
		"amount": value.NatFromUint64(t.Amount),
		"memo":   value.Text(t.Memo),
	}))
}

func (t *Transfer) BlockType() string { return "1xfer" }

func (t *Transfer) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"from":   value.Text(t.From),
		"to":     value.Text(t.To),
		"amount": value.NatFromUint64(t.Amount),
		"memo":   value.Text(t.Memo),
	})
}

func (b *Burn) ValidateFields() error {
	if b.From == "" {
		return fmt.Errorf("burn: %w: missing from", ErrInvalidTransaction)
	}
	if b.Amount == 0 {
		return fmt.Errorf("burn: %w: amount must be positive", ErrInvalidTransaction)
	}
	return nil
}

func (b *Burn) Timestamp() (uint64, bool) {
	if b.UserTimestampNs == nil {
		return 0, false
	}
	return *b.UserTimestampNs, true
}

func (b *Burn) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":     value.Text("burn"),
		"from":   value.Text(b.From),
		"amount": value.NatFromUint64(b.Amount),
		"memo":   value.Text(b.Memo),
	}))
}

func (b *Burn) BlockType() string { return "1burn" }

func (b *Burn) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"from":   value.Text(b.From),
		"amount": value.NatFromUint64(b.Amount),
		"memo":   value.Text(b.Memo),
	})
}

func (a *Approve) ValidateFields() error {
	if a.From == "" {
		return fmt.Errorf("approve: %w: missing from", ErrInvalidTransaction)
	}
	if a.Spender == "" {
		return fmt.Errorf("approve: %w: missing spender", ErrInvalidTransaction)
	}
	return nil
}

func (a *Approve) Timestamp() (uint64, bool) {
	if a.UserTimestampNs == nil {
		return 0, false
	}
	return *a.UserTimestampNs, true
}

func (a *Approve) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":      value.Text("approve"),
		"from":    value.Text(a.From),
		"spender": value.Text(a.Spender),
		"amount":  value.NatFromUint64(a.Amount),
		"memo":    value.Text(a.Memo),
	}))
}

func (a *Approve) BlockType() string { return "2approve" }

func (a *Approve) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"from":    value.Text(a.From),
		"spender": value.Text(a.Spender),
		"amount":  value.NatFromUint64(a.Amount),
		"memo":    value.Text(a.Memo),
	})
}

func (m *NFTMint) ValidateFields() error {
	if m.To == "" {
		return fmt.Errorf("nft_mint: %w: missing to", ErrInvalidTransaction)
	}
	return nil
}

func (m *NFTMint) Timestamp() (uint64, bool) {
	if m.UserTimestampNs == nil {
		return 0, false
	}
	return *m.UserTimestampNs, true
}

func (m *NFTMint) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":       value.Text("nft_mint"),
		"to":       value.Text(m.To),
		"token_id": value.NatFromUint64(m.TokenID),
		"metadata": value.Text(m.Metadata),
	}))
}

func (m *NFTMint) BlockType() string { return "7mint" }

func (m *NFTMint) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"to":       value.Text(m.To),
		"token_id": value.NatFromUint64(m.TokenID),
		"metadata": value.Text(m.Metadata),
	})
}

func (t *NFTTransfer) ValidateFields() error {
	if t.From == "" {
		return fmt.Errorf("nft_transfer: %w: missing from", ErrInvalidTransaction)
	}
	if t.To == "" {
		return fmt.Errorf("nft_transfer: %w: missing to", ErrInvalidTransaction)
	}
	return nil
}

func (t *NFTTransfer) Timestamp() (uint64, bool) {
	if t.UserTimestampNs == nil {
		return 0, false
	}
	return *t.UserTimestampNs, true
}

func (t *NFTTransfer) ContentHash() [32]byte {
	return certhash.Of(value.Map(map[string]value.Value{
		"op":       value.Text("nft_xfer"),
		"from":     value.Text(t.From),
		"to":       value.Text(t.To),
		"token_id": value.NatFromUint64(t.TokenID),
	}))
}

func (t *NFTTransfer) BlockType() string { return "7xfer" }

func (t *NFTTransfer) ToValue() value.Value {
	return value.Map(map[string]value.Value{
		"from":     value.Text(t.From),
		"to":       value.Text(t.To),
		"token_id": value.NatFromUint64(t.TokenID),
	})
}
