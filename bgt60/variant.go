package bgt60

import (
	"fmt"
	"strings"
)

// Variant is a chip model of the BGT60 family supported by this driver.
type Variant uint8

const (
	TR13C Variant = iota
	UTR11AIP
)

type variantInfo struct {
	name      string
	fifo      Register
	fstat     Register
	maxBlocks int // FIFO capacity in 24-bit blocks (two samples each)
	accepts   func(digital uint16, rf uint8) bool
}

var variants = [...]variantInfo{
	TR13C: {
		name:      "BGT60TR13C",
		fifo:      FIFO_TR13C,
		fstat:     FSTAT_TR13C,
		maxBlocks: 8192,
		accepts: func(digital uint16, rf uint8) bool {
			return digital == 3 || rf == 3
		},
	},
	UTR11AIP: {
		name:      "BGT60UTR11AIP",
		fifo:      FIFO_UTR11,
		fstat:     FSTAT_UTR11,
		maxBlocks: 2048,
		accepts: func(_ uint16, rf uint8) bool {
			return rf == 7 || rf == 9 || rf == 12
		},
	},
}

func (v Variant) info() *variantInfo {
	if int(v) >= len(variants) {
		panic(fmt.Sprintf("bgt60: unknown variant %d", uint8(v)))
	}
	return &variants[v]
}

func (v Variant) Valid() bool { return int(v) < len(variants) }

func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return variants[v].name
}

// FIFO returns the address of the FIFO read port.
func (v Variant) FIFO() Register { return v.info().fifo }

// FStat returns the address of the FIFO status register.
func (v Variant) FStat() Register { return v.info().fstat }

// MaxFIFOBlocks is the FIFO capacity in 24-bit blocks.
func (v Variant) MaxFIFOBlocks() int { return v.info().maxBlocks }

// ParseVariant accepts the full part name or its short suffix,
// case-insensitive ("BGT60TR13C", "tr13c", "utr11aip", "utr11").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bgt60tr13c", "tr13c":
		return TR13C, nil
	case "bgt60utr11aip", "utr11aip", "utr11":
		return UTR11AIP, nil
	}
	return 0, fmt.Errorf("unknown bgt60 variant %q", s)
}

// ValidateVariant checks a CHIP_ID reading against the expected variant.
func ValidateVariant(v Variant, digital uint16, rf uint8) error {
	if !v.Valid() || !v.info().accepts(digital, rf) {
		return &Error{
			Kind: KindVariantMismatch,
			Op:   "validate_variant",
			Reg:  CHIP_ID,
			Msg:  fmt.Sprintf("%s: digital_id=%d rf_id=%d", v, digital, rf),
		}
	}
	return nil
}
