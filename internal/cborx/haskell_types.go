// Package cborx implements the native rejection-reason decoder: it walks the
// ledger's CBOR-encoded rejection reason and renders
// Haskell-constructor-style strings compatible with the cardano-cli
// submission API. The cursor type in decoder.go is a low-level,
// non-validating positional reader rather than a generic-tree decode,
// because each variant reads a tag-specific number of fields regardless of
// what the surrounding array header declared.
package cborx

import (
	"fmt"
	"strings"
)

// ShelleyBasedEra is the ledger's era tag, 1 through 6.
type ShelleyBasedEra uint16

const (
	EraShelley ShelleyBasedEra = iota + 1
	EraAllegra
	EraMary
	EraAlonzo
	EraBabbage
	EraConway
)

func (e ShelleyBasedEra) String() string {
	switch e {
	case EraShelley:
		return "ShelleyBasedEraShelley"
	case EraAllegra:
		return "ShelleyBasedEraAllegra"
	case EraMary:
		return "ShelleyBasedEraMary"
	case EraAlonzo:
		return "ShelleyBasedEraAlonzo"
	case EraBabbage:
		return "ShelleyBasedEraBabbage"
	case EraConway:
		return "ShelleyBasedEraConway"
	default:
		return fmt.Sprintf("UnknownEra(%d)", e)
	}
}

func (c *cursor) decodeShelleyBasedEra() (ShelleyBasedEra, error) {
	if _, err := c.Array(); err != nil {
		return 0, err
	}
	tag, err := c.Uint16()
	if err != nil {
		return 0, err
	}
	if tag < 1 || tag > 6 {
		return 0, fmt.Errorf("cborx: unknown era while decoding ShelleyBasedEra: %d", tag)
	}
	return ShelleyBasedEra(tag), nil
}

// Network is the ledger's two-variant network id.
type Network uint16

const (
	NetworkMainnet Network = 0
	NetworkTestnet Network = 1
)

func (n Network) String() string {
	if n == NetworkMainnet {
		return "Mainnet"
	}
	return "Testnet"
}

// PlutusPurpose is the script purpose carried by the
// MissingRedeemers/ExtraRedeemers failures.
type PlutusPurpose uint16

const (
	PurposeSpending PlutusPurpose = iota
	PurposeMinting
	PurposeCertifying
	PurposeRewarding
)

func (p PlutusPurpose) String() string {
	switch p {
	case PurposeSpending:
		return "Spending"
	case PurposeMinting:
		return "Minting"
	case PurposeCertifying:
		return "Certifying"
	case PurposeRewarding:
		return "Rewarding"
	default:
		return fmt.Sprintf("UnknownPurpose(%d)", p)
	}
}

// ValidityInterval is the pair of optional slot bounds on a transaction.
type ValidityInterval struct {
	InvalidBefore    *uint64
	InvalidHereafter *uint64
}

func (v ValidityInterval) String() string {
	return fmt.Sprintf("ValidityInterval { invalid_before: %s, invalid_hereafter: %s }",
		displayOptionU64(v.InvalidBefore), displayOptionU64(v.InvalidHereafter))
}

func (c *cursor) decodeValidityInterval() (ValidityInterval, error) {
	if _, err := c.Array(); err != nil {
		return ValidityInterval{}, err
	}
	before, err := c.decodeOptionalU64()
	if err != nil {
		return ValidityInterval{}, err
	}
	after, err := c.decodeOptionalU64()
	if err != nil {
		return ValidityInterval{}, err
	}
	return ValidityInterval{InvalidBefore: before, InvalidHereafter: after}, nil
}

func (c *cursor) decodeOptionalU64() (*uint64, error) {
	isNull, err := c.TakeNullIfPresent()
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, nil
	}
	v, err := c.Uint64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// display helpers for the constructor-string rendering.

func displayVec(items []string) string {
	return strings.Join(items, " ")
}

func displayTupleVec(pairs [][2]string) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("(%s %s)", p[0], p[1])
	}
	return strings.Join(parts, " ")
}

func displayTripleVec(triples [][3]string) string {
	parts := make([]string, len(triples))
	for i, t := range triples {
		parts[i] = fmt.Sprintf("(%s %s %s)", t[0], t[1], t[2])
	}
	return strings.Join(parts, " ")
}

func displayOption(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func displayOptionU64(v *uint64) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *v)
}
