package bgt60

import "fmt"

// Register is a 7-bit register address.
type Register uint8

// Register map shared by the TR13C and UTR11AIP. The FIFO and FSTAT
// addresses differ per variant, see Variant.FIFO and Variant.FStat.
const (
	MAIN        Register = 0x00
	ADC0        Register = 0x01
	CHIP_ID     Register = 0x02
	STAT1       Register = 0x03
	PACR1       Register = 0x04
	PACR2       Register = 0x05
	SFCTL       Register = 0x06
	SADC_CTRL   Register = 0x07
	CSI_0       Register = 0x08
	CSI_1       Register = 0x09
	CSI_2       Register = 0x0A
	CSCI        Register = 0x0B
	CSDS_0      Register = 0x0C
	CSDS_1      Register = 0x0D
	CSDS_2      Register = 0x0E
	CSCDS       Register = 0x0F
	CSU1_0      Register = 0x10
	CSU1_1      Register = 0x11
	CSU1_2      Register = 0x12
	CSD1_0      Register = 0x13
	CSD1_1      Register = 0x14
	CSD1_2      Register = 0x15
	CSC1        Register = 0x16
	CSU2_0      Register = 0x17
	CSU2_1      Register = 0x18
	CSU2_2      Register = 0x19
	CSD2_0      Register = 0x1A
	CSD2_1      Register = 0x1B
	CSD2_2      Register = 0x1C
	CSC2        Register = 0x1D
	CSU3_0      Register = 0x1E
	CSU3_1      Register = 0x1F
	CSU3_2      Register = 0x20
	CSD3_0      Register = 0x21
	CSD3_1      Register = 0x22
	CSD3_2      Register = 0x23
	CSC3        Register = 0x24
	CSU4_0      Register = 0x25
	CSU4_1      Register = 0x26
	CSU4_2      Register = 0x27
	CSD4_0      Register = 0x28
	CSD4_1      Register = 0x29
	CSD4_2      Register = 0x2A
	CSC4        Register = 0x2B
	CCR0        Register = 0x2C
	CCR1        Register = 0x2D
	CCR2        Register = 0x2E
	CCR3        Register = 0x2F
	PLL1_0      Register = 0x30
	PLL1_1      Register = 0x31
	PLL1_2      Register = 0x32
	PLL1_3      Register = 0x33
	PLL1_4      Register = 0x34
	PLL1_5      Register = 0x35
	PLL1_6      Register = 0x36
	PLL1_7      Register = 0x37
	PLL2_0      Register = 0x38
	PLL2_1      Register = 0x39
	PLL2_2      Register = 0x3A
	PLL2_3      Register = 0x3B
	PLL2_4      Register = 0x3C
	PLL2_5      Register = 0x3D
	PLL2_6      Register = 0x3E
	PLL2_7      Register = 0x3F
	PLL3_0      Register = 0x40
	PLL3_1      Register = 0x41
	PLL3_2      Register = 0x42
	PLL3_3      Register = 0x43
	PLL3_4      Register = 0x44
	PLL3_5      Register = 0x45
	PLL3_6      Register = 0x46
	PLL3_7      Register = 0x47
	PLL4_0      Register = 0x48
	PLL4_1      Register = 0x49
	PLL4_2      Register = 0x4A
	PLL4_3      Register = 0x4B
	PLL4_4      Register = 0x4C
	PLL4_5      Register = 0x4D
	PLL4_6      Register = 0x4E
	PLL4_7      Register = 0x4F
	RFT0        Register = 0x55
	RFT1        Register = 0x56
	PLL_DFT0    Register = 0x59
	STAT0       Register = 0x5D
	SADC_RESULT Register = 0x5E

	// TR13C FIFO port and status.
	FSTAT_TR13C Register = 0x5F
	FIFO_TR13C  Register = 0x60

	// UTR11AIP FIFO port and status.
	FSTAT_UTR11 Register = 0x63
	FIFO_UTR11  Register = 0x64

	// Address of the burst-mode command. Never read or written as a register.
	BURST Register = 0x7F
)

// MaxRegister is the highest addressable register in either variant.
const MaxRegister = FIFO_UTR11

var registerNames = map[Register]string{
	MAIN: "MAIN", ADC0: "ADC0", CHIP_ID: "CHIP_ID", STAT1: "STAT1",
	PACR1: "PACR1", PACR2: "PACR2", SFCTL: "SFCTL", SADC_CTRL: "SADC_CTRL",
	CSI_0: "CSI_0", CSI_1: "CSI_1", CSI_2: "CSI_2", CSCI: "CSCI",
	CSDS_0: "CSDS_0", CSDS_1: "CSDS_1", CSDS_2: "CSDS_2", CSCDS: "CSCDS",
	CSU1_0: "CSU1_0", CSU1_1: "CSU1_1", CSU1_2: "CSU1_2",
	CSD1_0: "CSD1_0", CSD1_1: "CSD1_1", CSD1_2: "CSD1_2", CSC1: "CSC1",
	CSU2_0: "CSU2_0", CSU2_1: "CSU2_1", CSU2_2: "CSU2_2",
	CSD2_0: "CSD2_0", CSD2_1: "CSD2_1", CSD2_2: "CSD2_2", CSC2: "CSC2",
	CSU3_0: "CSU3_0", CSU3_1: "CSU3_1", CSU3_2: "CSU3_2",
	CSD3_0: "CSD3_0", CSD3_1: "CSD3_1", CSD3_2: "CSD3_2", CSC3: "CSC3",
	CSU4_0: "CSU4_0", CSU4_1: "CSU4_1", CSU4_2: "CSU4_2",
	CSD4_0: "CSD4_0", CSD4_1: "CSD4_1", CSD4_2: "CSD4_2", CSC4: "CSC4",
	CCR0: "CCR0", CCR1: "CCR1", CCR2: "CCR2", CCR3: "CCR3",
	PLL1_0: "PLL1_0", PLL1_1: "PLL1_1", PLL1_2: "PLL1_2", PLL1_3: "PLL1_3",
	PLL1_4: "PLL1_4", PLL1_5: "PLL1_5", PLL1_6: "PLL1_6", PLL1_7: "PLL1_7",
	PLL2_0: "PLL2_0", PLL2_1: "PLL2_1", PLL2_2: "PLL2_2", PLL2_3: "PLL2_3",
	PLL2_4: "PLL2_4", PLL2_5: "PLL2_5", PLL2_6: "PLL2_6", PLL2_7: "PLL2_7",
	PLL3_0: "PLL3_0", PLL3_1: "PLL3_1", PLL3_2: "PLL3_2", PLL3_3: "PLL3_3",
	PLL3_4: "PLL3_4", PLL3_5: "PLL3_5", PLL3_6: "PLL3_6", PLL3_7: "PLL3_7",
	PLL4_0: "PLL4_0", PLL4_1: "PLL4_1", PLL4_2: "PLL4_2", PLL4_3: "PLL4_3",
	PLL4_4: "PLL4_4", PLL4_5: "PLL4_5", PLL4_6: "PLL4_6", PLL4_7: "PLL4_7",
	RFT0: "RFT0", RFT1: "RFT1", PLL_DFT0: "PLL_DFT0",
	STAT0: "STAT0", SADC_RESULT: "SADC_RESULT",
	FSTAT_TR13C: "FSTAT", FIFO_TR13C: "FIFO",
	FSTAT_UTR11: "FSTAT", FIFO_UTR11: "FIFO",
	BURST: "BURST",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", uint8(r))
}

// Known reports whether r is a named register.
func (r Register) Known() bool {
	_, ok := registerNames[r]
	return ok
}

// RegisterWord is one entry of a register list produced by the vendor
// configuration tool: the 4-byte write frame for a register, i.e. the
// address in bits 31:25, the write flag in bit 24 and the payload in 23:0.
type RegisterWord uint32

func (w RegisterWord) Addr() Register  { return Register(uint32(w) >> 25) }
func (w RegisterWord) Payload() uint32 { return uint32(w) & payloadMask }

// MakeRegisterWord builds the word the configuration tool would emit for a
// write of value to addr.
func MakeRegisterWord(addr Register, value uint32) RegisterWord {
	return RegisterWord(uint32(addr&0x7F)<<25 | 1<<24 | value&payloadMask)
}

func (w RegisterWord) String() string {
	return fmt.Sprintf("%s=0x%06X", w.Addr(), w.Payload())
}
